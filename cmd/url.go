package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/iksnae/studio-bridge/internal"
	"github.com/iksnae/studio-bridge/internal/urlbuilder"
	"github.com/spf13/cobra"
)

var (
	urlShowToken bool
	urlFile      string
)

var urlCmd = &cobra.Command{
	Use:   "url <document>",
	Short: "Print the authenticated editor URL of a process or transform",
	Long: `Print the URL that embeds the visual editor of a document.

For a proxy document (.bpl, .dtl) the URL is the first line of the document,
read from the server or from --file. For a class (.cls) it is built from the
connection settings after checking the class is a process or a transform.

A fresh access token is minted every time. It is masked unless --show-token
is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		defer env.Close()

		u, err := buildURL(cmd.Context(), env, internal.Artifact{Name: args[0]})
		if err != nil {
			return err
		}

		if urlShowToken {
			fmt.Fprintln(cmd.OutOrStdout(), u.String())
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), u.Redacted())
		}
		return nil
	},
}

func buildURL(ctx context.Context, env *environment, a internal.Artifact) (urlbuilder.RemoteURL, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !a.IsClass() {
		if a.ProxyKind() == internal.KindNone {
			return urlbuilder.RemoteURL{}, fmt.Errorf("%s is neither a class nor a .bpl/.dtl proxy document", a.Name)
		}
		text, err := proxyText(ctx, env, a)
		if err != nil {
			return urlbuilder.RemoteURL{}, err
		}
		return env.builder.FromProxyDocument(ctx, a.Name, text)
	}

	kind, err := env.client.Classify(ctx, a)
	if err != nil {
		return urlbuilder.RemoteURL{}, err
	}
	if kind == internal.KindNone {
		return urlbuilder.RemoteURL{}, &internal.ClassificationError{Name: a.Name}
	}

	conn := env.cfg.Connection
	webapp := conn.WebApp
	if webapp == "" {
		if webapp, err = env.client.DefaultWebApp(ctx); err != nil {
			return urlbuilder.RemoteURL{}, fmt.Errorf("failed to find the default web application: %w", err)
		}
	}

	return env.builder.FromDescriptor(ctx, urlbuilder.Descriptor{
		HTTPS:      conn.HTTPS,
		Host:       conn.Host,
		Port:       conn.Port,
		PathPrefix: conn.PathPrefix,
		WebApp:     webapp,
		Namespace:  conn.Namespace,
		Name:       a.Name,
		Kind:       kind,
	})
}

func proxyText(ctx context.Context, env *environment, a internal.Artifact) (string, error) {
	if urlFile != "" {
		data, err := os.ReadFile(urlFile)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", urlFile, err)
		}
		return string(data), nil
	}
	doc, err := env.client.GetDoc(ctx, a.Name)
	if err != nil {
		return "", err
	}
	return strings.Join(doc.Content, "\n"), nil
}

func init() {
	rootCmd.AddCommand(urlCmd)
	urlCmd.Flags().BoolVar(&urlShowToken, "show-token", false, "Print the access token instead of masking it")
	urlCmd.Flags().StringVar(&urlFile, "file", "", "Read the proxy document from a local file")
}
