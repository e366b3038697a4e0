package main

import (
	"ottscout/internal/modkit"
	"ottscout/internal/modkit/httpkit"
	"ottscout/internal/platform/logger"
	phttp "ottscout/internal/platform/net/http"
	"ottscout/internal/services/api"
	releaseshttp "ottscout/internal/services/releases/http"

	"github.com/spf13/cobra"
)

func newServeCommand(c *commandContext) *cobra.Command {
	var (
		addr     string
		swagger  bool
		profiler bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env := c.env()
			switch {
			case addr != "":
			case env.Has("HTTP_PORT"):
				addr = env.MustPort("HTTP_PORT")
			default:
				addr = env.MayString("HTTP_ADDR", ":8080")
			}

			m, deps, closeAll, err := c.module(ctx)
			if err != nil {
				return err
			}
			defer closeAll()

			srv := phttp.NewServer(addr)
			api.Mount(srv.Router(), api.Options{
				Modules: []modkit.Module{m},
				Store:   deps.Store,
				Lite:    deps.Lite,
				Stack: httpkit.StackOptions{
					Timeout:     env.MayDuration("HTTP_REQUEST_TIMEOUT", 0),
					SlowRequest: env.MayDuration("HTTP_SLOW_REQUEST", 0),
					CORSOrigins: env.MayCSV("HTTP_CORS_ORIGINS", nil),
				},
				Docs:           releaseshttp.OpenAPI,
				EnableSwagger:  swagger || env.MayBool("SWAGGER", false),
				EnableProfiler: profiler || env.MayBool("PROFILER", false),
			})

			logger.Named("serve").Info().Str("addr", addr).Strs("sinks", m.Sinks()).Msg("listening")
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides OTTSCOUT_HTTP_PORT and OTTSCOUT_HTTP_ADDR)")
	cmd.Flags().BoolVar(&swagger, "swagger", false, "Serve the API docs under /api/docs")
	cmd.Flags().BoolVar(&profiler, "profiler", false, "Serve pprof under /debug")
	return cmd
}
