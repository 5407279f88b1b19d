package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/steamfam/pkg/accounts"
	"github.com/matzehuels/steamfam/pkg/errors"
	"github.com/matzehuels/steamfam/pkg/integrations/community"
)

// resolveCommand creates the resolve command, which prints the SteamID64
// of each identifier.
func (c *CLI) resolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <identifier>...",
		Short: "Print the SteamID64 of profile URLs or ids",
		Example: `  steamfam resolve https://steamcommunity.com/id/gabelogannewell
  steamfam resolve 76561197960287930`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := c.newTransport(cmd.Context(), c.Config.Cache)
			if err != nil {
				return err
			}
			defer t.Cache.Close()
			r := accounts.NewResolver(community.NewClient(t), c.Logger)
			return resolveAll(cmd.Context(), r, args, cmd.OutOrStdout())
		},
	}
}

// resolveAll prints "identifier<TAB>id" per argument. Unresolvable
// identifiers are reported and make the command fail after all arguments
// were tried.
func resolveAll(ctx context.Context, r *accounts.Resolver, idents []string, w io.Writer) error {
	failed := 0
	for _, ident := range idents {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, ok := r.Resolve(ctx, ident)
		if !ok {
			printWarning("could not resolve %s", ident)
			failed++
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", ident, id)
	}
	if failed > 0 {
		return errors.New(errors.ErrCodeUnresolvable, "%d of %d identifiers could not be resolved", failed, len(idents))
	}
	return nil
}
