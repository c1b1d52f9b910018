package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ccp-p/audio-analyzer/internal/server"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 分析服务 (/trans, /emotion, /environment)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				if err := config.Update(map[string]interface{}{"listen_addr": listen}); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			rt := bootstrap(ctx, config, reg)
			srv := server.New(config, rt.pipeline, server.Options{
				Device:       rt.pipeline.Models().Device(),
				ErrorHandler: rt.errorHandler,
				Gatherer:     reg,
			})
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "监听地址，覆盖配置中的 listen_addr")
	return cmd
}
