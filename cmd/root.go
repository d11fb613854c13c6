// Package cmd implements tsdev's single command: run the user's
// program under a synchronous on-demand TypeScript/JavaScript compile
// pipeline, restarting it whenever a watched source file changes.
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/tsdev/internal/compiler"
	"github.com/conneroisu/tsdev/internal/config"
	"github.com/conneroisu/tsdev/internal/console"
	tsdeverrors "github.com/conneroisu/tsdev/internal/errors"
	"github.com/conneroisu/tsdev/internal/harness"
	"github.com/conneroisu/tsdev/internal/ipc"
	"github.com/conneroisu/tsdev/internal/logging"
	"github.com/conneroisu/tsdev/internal/reload"
	"github.com/conneroisu/tsdev/internal/session"
	"github.com/conneroisu/tsdev/internal/supervisor"
	"github.com/conneroisu/tsdev/internal/watcher"
)

var rootCmd = &cobra.Command{
	Use:   "tsdev -- <command> [args...]",
	Short: "Run a Node command under an on-demand TypeScript/JavaScript compiler",
	Long: `tsdev runs a Node.js program under a synchronous on-demand compile
pipeline: TypeScript and JSX sources are transpiled the first time they
are required, cached, and recompiled only when their file (or a
sibling in the same package) changes on disk.

Example:
  tsdev -- node server.js
  tsdev --swc --supervise -- node --watch server.js`,
	Args: cobra.ArbitraryArgs,
	RunE: runTsdev,
}

func init() {
	// SetInterspersed(false) stops flag parsing at the first positional
	// argument, so everything after the user's command name — including
	// flags tsdev doesn't know about — passes through untouched (spec.md
	// §6, "Unknown flags pass through to the child").
	rootCmd.Flags().SetInterspersed(false)

	rootCmd.Flags().BoolP("commands", "c", false, "read stdin for control commands (rs = restart, x = shutdown)")
	rootCmd.Flags().BoolP("watch", "w", true, "restart on source changes")
	rootCmd.Flags().BoolP("supervise", "s", false, "after child exit, do not shut down; await next restart")
	rootCmd.Flags().Bool("swc", false, "use per-file backend instead of group-build backend")
	rootCmd.Flags().String("log-level", "info", "debug, info, warn, or error")
	rootCmd.Flags().Bool("log-json", false, "emit structured logs as JSON instead of text")

	_ = viper.BindPFlag("commands", rootCmd.Flags().Lookup("commands"))
	_ = viper.BindPFlag("watch", rootCmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("supervise", rootCmd.Flags().Lookup("supervise"))
	_ = viper.BindPFlag("swc", rootCmd.Flags().Lookup("swc"))
	_ = viper.BindPFlag("log-level", rootCmd.Flags().Lookup("log-level"))
	_ = viper.BindPFlag("log-json", rootCmd.Flags().Lookup("log-json"))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runTsdev(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("tsdev: no command given (usage: tsdev -- <command> [args...])")
	}

	log := logging.New(logging.Config{
		Level: logging.ParseLevel(viper.GetString("log-level")),
		JSON:  viper.GetBool("log-json"),
	})

	workspaceRoot, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving workspace root: %w", err)
	}

	projectCfg, err := config.Load(workspaceRoot)
	if err != nil {
		return fmt.Errorf("loading project configuration: %w", err)
	}

	sess, err := session.New()
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	defer sess.Cleanup()

	extensions := projectCfg.ResolvedExtensions()
	useSWC := viper.GetBool("swc")

	var backend compiler.Backend
	if useSWC {
		backend = compiler.NewPerFileBackend(projectCfg.Ignore, sess.StagedPath)
	} else {
		backend = compiler.NewGroupBackend(extensions, projectCfg.Ignore, sess.StagedPath)
	}
	coordinator := compiler.NewCoordinator(backend)

	fw, err := watcher.New(log)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	fw.AddFilter(watcher.NoNodeModules)
	fw.AddFilter(watcher.ExtensionFilter(extensions))
	defer fw.Close()

	if err := harness.WriteTo(sess.Harness, harness.Params{
		SocketPath: sess.Socket,
		Extensions: extensions,
	}); err != nil {
		return fmt.Errorf("rendering harness: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exitCode := 0
	sup := supervisor.New(supervisor.Config{
		Argv:         args,
		Harness:      sess.Harness,
		SocketPath:   sess.Socket,
		Extensions:   extensions,
		StdinClaimed: viper.GetBool("commands"),
	}, log, func(code int) {
		// spec.md §4.6: only a non-supervise-mode child exit tears down
		// the whole process; in supervise mode a non-zero exit is
		// logged (spec.md §7's ChildExitUnclean policy, E2E-5) and we
		// just wait for the next restart trigger.
		if !viper.GetBool("supervise") {
			exitCode = code
			cancel()
			return
		}
		if code != 0 {
			log.Warn(tsdeverrors.ChildExitUnclean(code), "child exited uncleanly; awaiting next restart")
		}
	})

	report := console.New(cmd.OutOrStdout())
	controller := reload.New(coordinator, sup, report, log)

	routes := ipc.NewRoutes(coordinator, fw, log)
	ipcServer := ipc.New(sess.Socket, routes, log)

	fmt.Fprintln(cmd.OutOrStdout(), console.StartupTable([]console.Summary{
		{Component: "session", Detail: sess.ID},
		{Component: "backend", Detail: backendName(useSWC)},
		{Component: "extensions", Detail: strings.Join(extensions, ", ")},
		{Component: "socket", Detail: sess.Socket},
		{Component: "command", Detail: strings.Join(args, " ")},
	}))

	go func() {
		if err := ipcServer.Serve(ctx); err != nil {
			log.Error(err, "ipc server exited")
		}
	}()

	if viper.GetBool("watch") {
		fw.AddHandler(func(ev watcher.ChangeEvent) {
			controller.EnqueueReload(ctx, ev.Path, ev.Type.Invalidate())
		})
		go func() {
			if err := fw.Run(ctx); err != nil {
				log.Warn(err, "watcher stopped")
			}
		}()
		if err := fw.AddRecursive(workspaceRoot); err != nil {
			log.Warn(err, "failed to watch workspace root")
		}
	}

	quitCh := make(chan struct{})
	if viper.GetBool("commands") {
		go watchStdin(ctx, os.Stdin, controller, quitCh)
	}

	controller.OnCleanup(func() { _ = ipcServer.Shutdown(context.Background()) })
	controller.OnCleanup(sess.Cleanup)

	controller.InvalidateBuildSetAndReload(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		controller.Shutdown(context.Background())
		return nil
	case <-quitCh:
		controller.Shutdown(context.Background())
		return nil
	case <-ctx.Done():
		controller.Shutdown(context.Background())
		if exitCode != 0 {
			os.Exit(exitCode)
		}
		return nil
	}
}

// watchStdin implements spec.md §6's --commands flag: a bare "rs" line
// on stdin triggers an unconditional invalidate+reload, and a bare "x"
// line (SPEC_FULL.md's supplemented shutdown command) signals a clean
// exit by closing quit.
func watchStdin(ctx context.Context, in io.Reader, controller *reload.Controller, quit chan struct{}) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "rs":
			controller.InvalidateBuildSetAndReload(ctx)
		case "x":
			close(quit)
			return
		}
	}
}

func backendName(useSWC bool) string {
	if useSWC {
		return "per-file (swc)"
	}
	return "group-build (esbuild)"
}
