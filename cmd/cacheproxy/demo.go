package main

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-cache-proxy/metrics"
	"github.com/goliatone/go-cache-proxy/pkg/di"
	"github.com/goliatone/go-cache-proxy/proxy"
)

// ExampleSubject has one slow operation.
type ExampleSubject struct{}

// ImHeavy blocks for d, then returns its result.
func (ExampleSubject) ImHeavy(ctx context.Context, d time.Duration) (string, error) {
	select {
	case <-time.After(d):
		return "Finally my result is here !", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newDemoCmd(flags *rootFlags) *cobra.Command {
	var (
		delay       time.Duration
		calls       int
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Call a slow operation through the proxy and show the cache at work",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			container, err := di.NewContainerContext(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = container.Close() }()

			reg := prometheus.NewRegistry()
			collector := metrics.New(metrics.Config{})
			collector.MustRegister(reg)

			hooks := proxy.NewHooks()
			collector.Attach(hooks)

			p, err := container.NewProxy(ExampleSubject{},
				proxy.WithHooks(hooks),
				proxy.WithLogger(log.Log),
			)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i := 0; i < calls; i++ {
				start := time.Now()
				result, err := proxy.Call[string](cmd.Context(), p, "ImHeavy", delay)
				if err != nil {
					return err
				}

				hits, err := p.CacheHitsFor(p.SubjectType(), "ImHeavy", delay)
				if err != nil {
					return err
				}

				label := "Fresh "
				if hits > 0 {
					label = "Cached"
				}
				fmt.Fprintf(out, "%s: %s (%s, hits=%d)\n", label, result, time.Since(start).Round(time.Millisecond), hits)
			}

			if showMetrics {
				families, err := reg.Gather()
				if err != nil {
					return err
				}
				enc := expfmt.NewEncoder(out, expfmt.NewFormat(expfmt.TypeTextPlain))
				for _, mf := range families {
					if err := enc.Encode(mf); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&delay, "delay", 3*time.Second, "how long the heavy operation takes")
	cmd.Flags().IntVarP(&calls, "calls", "n", 2, "number of calls to make")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print Prometheus metrics at the end")
	return cmd
}
