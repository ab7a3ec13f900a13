// Command agentrtd runs a single counter agent end-to-end: it builds the
// agent, starts its server, registers a signal route for "counter.increment", and
// drives a few increments before hibernating and printing the resulting
// checkpoint. It exists to exercise the runtime the way the teacher's
// examples/agent-example main.go exercises BaseAgent.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nshkrdotcom/agentrt/agent"
	"github.com/nshkrdotcom/agentrt/core"
	"github.com/nshkrdotcom/agentrt/directive"
	"github.com/nshkrdotcom/agentrt/persist"
	"github.com/nshkrdotcom/agentrt/registry"
	"github.com/nshkrdotcom/agentrt/router"
	"github.com/nshkrdotcom/agentrt/server"
	jsig "github.com/nshkrdotcom/agentrt/signal"
	"github.com/nshkrdotcom/agentrt/storage"
	"github.com/nshkrdotcom/agentrt/strategy"
	"github.com/nshkrdotcom/agentrt/telemetry"
)

func main() {
	steps := flag.Int("steps", 3, "number of increment signals to send before hibernating")
	exporter := flag.String("telemetry-exporter", "stdout", "trace exporter: stdout or otlp-http")
	flag.Parse()

	cfg, err := core.NewConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	shutdown, err := telemetry.InitProvider(context.Background(), telemetry.ProviderConfig{
		ServiceName: "agentrtd",
		Exporter:    *exporter,
	})
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()
	telemetry.SetGlobalTelemetry(telemetry.NewOtelTelemetry("agentrtd"))

	ag, err := agent.New(agent.Options{
		ID:     "counter-1",
		Name:   "counter",
		Schema: agent.SchemaFromList([]agent.Field{{Name: "counter", Kind: agent.KindInt, Default: 0}}),
		Strategy: strategy.Direct{},
		Actions: map[string]agent.ActionFunc{
			"increment": incrementAction,
		},
	})
	if err != nil {
		log.Fatalf("new agent: %v", err)
	}

	r := router.New()
	if err := r.Add("counter.increment", "increment", 0, nil); err != nil {
		log.Fatalf("route: %v", err)
	}

	// HandleSignal resolves a signal to an action via the router instead of
	// falling back to the server's default (sig.Type verbatim), so routed
	// signal types can map onto differently-named actions.
	handleSignal := func(_ *agent.Agent, sig *jsig.Signal) (interface{}, error) {
		matches, err := r.Lookup(sig)
		if err != nil {
			return nil, err
		}
		return matches[0].Handler, nil
	}

	reg := registry.New()
	srv, err := server.New(ag, server.Options{
		Config:       cfg,
		Registry:     reg,
		HandleSignal: handleSignal,
		EmitFunc: func(sig *jsig.Signal, dispatch *jsig.Dispatch) error {
			fmt.Printf("emit: %s\n", sig.Type)
			return nil
		},
	})
	if err != nil {
		log.Fatalf("start server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	current := ag
	for i := 0; i < *steps; i++ {
		sig, err := jsig.New("agentrtd://cli", "counter.increment")
		if err != nil {
			log.Fatalf("build signal: %v", err)
		}
		next, err := srv.Call(ctx, sig)
		if err != nil {
			log.Fatalf("call: %v", err)
		}
		current = next
		fmt.Printf("step %d: counter=%v\n", i+1, current.State["counter"])
		time.Sleep(10 * time.Millisecond)
	}

	store := storage.NewMemStore()
	key := storage.Key{AgentModule: "counter", ID: "counter-1"}
	cp, err := persist.Hibernate(ctx, store, key, current, 0)
	if err != nil {
		log.Fatalf("hibernate: %v", err)
	}
	fmt.Printf("checkpoint: %+v\n", cp)
}

func incrementAction(params map[string]interface{}, ctx agent.ActionContext) (agent.ActionResult, error) {
	cur, _ := ctx.State["counter"].(int)
	return agent.ActionResult{
		Directives: []directive.Directive{directive.SetState{Attrs: map[string]interface{}{"counter": cur + 1}}},
	}, nil
}
