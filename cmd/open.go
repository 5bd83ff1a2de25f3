package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/bridge"
	"github.com/iksnae/studio-bridge/internal/clock"
	"github.com/iksnae/studio-bridge/internal/termhost"
	"github.com/iksnae/studio-bridge/internal/webhost"
	"github.com/spf13/cobra"
)

var (
	openVariant string
	openListen  string
	openMirror  string
)

var openCmd = &cobra.Command{
	Use:   "open <document>",
	Short: "Open the visual editor of a process or transform and bridge it",
	Long: `Open the remote visual editor of a business process or data transformation
and keep it in sync with a local copy of its proxy document.

The editor is served on a local page (see --listen). While the bridge runs:
  • unsaved editor changes mark the local document dirty
  • editor confirmations and alerts are asked here on the terminal
  • saving the local proxy document reloads the editor

Variants:
  custom   the URL comes from the first line of the proxy document (default)
  direct   the URL is built from the connection settings for a class

The command runs until the editor page is closed or it is interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runOpen(ctx, env, internal.Artifact{Name: args[0]}, termhost.StdConsole(), cmd.OutOrStdout())
	},
}

// bridgeHost is the running set of hosts a session needs.
type bridgeHost struct {
	registry *bridge.Registry
	server   *webhost.Server
	watcher  *termhost.SaveWatcher
	docs     *termhost.Documents
	dialogs  *termhost.Dialogs
}

func startHost(ctx context.Context, env *environment, console *termhost.Console) (*bridgeHost, error) {
	listen := env.cfg.Listen
	if openListen != "" {
		listen = openListen
	}

	dir, err := env.mirrorDir(openMirror)
	if err != nil {
		return nil, err
	}
	mirror := termhost.NewMirror(dir, env.cfg.Connection.Namespace, env.client)
	if err := mirror.EnsureDir(); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}

	watcher, err := termhost.NewSaveWatcher(dir, clock.Real(), termhost.DefaultDebounce)
	if err != nil {
		return nil, err
	}

	h := &bridgeHost{
		registry: bridge.NewRegistry(),
		watcher:  watcher,
		docs:     termhost.NewDocuments(mirror),
		dialogs:  termhost.NewDialogs(console),
	}
	h.server = webhost.NewServer(listen, h.registry)
	if err := <-h.server.StartAsync(); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	// Reload buffers before sessions tell their editors to refresh
	watcher.OnSave(h.docs.Refresh)
	go watcher.Run(ctx)

	internal.LogDebug("Mirroring documents in %s", dir)
	return h, nil
}

func (h *bridgeHost) opener(env *environment, variant string) (bridge.Opener, error) {
	deps := bridge.Deps{
		Builder:    env.builder,
		Classifier: env.client,
		Documents:  h.docs,
		Surfaces:   h.server,
		Dialogs:    h.dialogs,
		Reloader:   env.client,
		Saves:      h.watcher,
		Registry:   h.registry,
		Clock:      clock.Real(),
		WebApps:    env.client,
		Connection: env.cfg.Connection,
	}

	switch bridge.Variant(variant) {
	case bridge.VariantCustom:
		return bridge.NewCustomSurfaceOpener(deps, env.cfg.Editors.Custom)
	case bridge.VariantDirect:
		return bridge.NewDirectEmbedOpener(deps, env.cfg.Editors.Direct)
	default:
		return nil, fmt.Errorf("unknown variant: %q (supported: custom, direct)", variant)
	}
}

func (h *bridgeHost) stop() {
	for _, s := range h.registry.Sessions() {
		s.Dispose()
	}
	if err := h.server.Stop(); err != nil {
		internal.LogWarn("Failed to stop web host: %v", err)
	}
	if err := h.watcher.Close(); err != nil {
		internal.LogWarn("Failed to stop watcher: %v", err)
	}
}

func runOpen(ctx context.Context, env *environment, a internal.Artifact, console *termhost.Console, out io.Writer) error {
	h, err := startHost(ctx, env, console)
	if err != nil {
		return err
	}
	defer h.stop()

	opener, err := h.opener(env, openVariant)
	if err != nil {
		return err
	}

	var session *bridge.Session
	err = console.Progress(ctx, fmt.Sprintf("Opening %s", a.Name), func() error {
		var openErr error
		session, openErr = opener.Open(ctx, a)
		return openErr
	})
	if err != nil {
		// Already reported or logged by the opener
		var classErr *internal.ClassificationError
		var malformed *internal.MalformedSourceError
		if errors.As(err, &classErr) || errors.As(err, &malformed) {
			return nil
		}
		return err
	}
	if session == nil {
		return nil
	}

	fmt.Fprintf(out, "%s %s\n", titleStyle.Render(session.Panel().Title()), h.server.SurfaceURL(session.Panel().ID()))
	if b, ok := h.docs.Lookup(session.Proxy()); ok {
		fmt.Fprintf(out, "%s %s\n", dimStyle.Render("Proxy document:"), b.Path())
	}

	select {
	case <-session.Done():
		console.Info("Editor closed")
	case <-ctx.Done():
		console.Info("Shutting down")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(openCmd)
	openCmd.Flags().StringVar(&openVariant, "variant", string(bridge.VariantCustom), "Editor variant (custom, direct)")
	openCmd.Flags().StringVar(&openListen, "listen", "", "Address of the local editor page (overrides listen)")
	openCmd.Flags().StringVar(&openMirror, "mirror", "", "Directory for local copies of proxy documents")
}
