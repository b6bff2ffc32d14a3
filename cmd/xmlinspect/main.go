// Command xmlinspect inspects XML documents through the resource engine:
// namespace maps, schema location hints and lazy streaming of large files.
package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/jacoelho/xmlresource"
)

var (
	flagBaseURL string
	flagAllow   string
	flagDefuse  string
	flagTimeout time.Duration
	flagLazy    int
	flagThin    bool
)

var rootCmd = &cobra.Command{
	Use:          "xmlinspect",
	Short:        "Inspect XML resources",
	Long:         "xmlinspect loads an XML document from a path, URL or stdin and reports\nits namespaces, schema location hints, or streams its elements lazily.",
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagBaseURL, "base-url", "", "base URL for relative location normalization")
	pf.StringVar(&flagAllow, "allow", "all", "access mode: all, remote, local, sandbox or none")
	pf.StringVar(&flagDefuse, "defuse", "remote", "defuse mode: always, remote, nonlocal or never")
	pf.DurationVar(&flagTimeout, "timeout", 300*time.Second, "timeout for remote resources")
	pf.IntVar(&flagLazy, "lazy", 0, "lazy depth, 0 loads the whole document")
	pf.BoolVar(&flagThin, "thin", true, "prune consumed preceding elements of lazy resources")

	rootCmd.AddCommand(namespacesCmd, locationsCmd, streamCmd)
}

func openResource(args []string) (*xmlresource.Resource, error) {
	opts := xmlresource.NewOptions().
		WithBaseURL(flagBaseURL).
		WithAllow(xmlresource.AllowMode(flagAllow)).
		WithDefuse(xmlresource.DefuseMode(flagDefuse)).
		WithTimeout(flagTimeout).
		WithLazy(flagLazy).
		WithThinLazy(flagThin)

	if len(args) == 0 {
		return xmlresource.New(os.Stdin, opts)
	}
	return xmlresource.New(args[0], opts)
}

var namespacesCmd = &cobra.Command{
	Use:   "namespaces [source]",
	Short: "Print the namespaces declared in the document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openResource(args)
		if err != nil {
			return err
		}
		defer r.Close()

		nsmap, err := r.GetNamespaces(nil, false)
		if err != nil {
			return err
		}
		prefixes := make([]string, 0, len(nsmap))
		for prefix := range nsmap {
			prefixes = append(prefixes, prefix)
		}
		sort.Strings(prefixes)
		for _, prefix := range prefixes {
			name := prefix
			if name == "" {
				name = "(default)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, nsmap[prefix])
		}
		return nil
	},
}

var locationsCmd = &cobra.Command{
	Use:   "locations [source]",
	Short: "Print the schema location hints of the document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openResource(args)
		if err != nil {
			return err
		}
		defer r.Close()

		hints, err := r.GetLocations(nil, false)
		if err != nil {
			return err
		}
		for _, hint := range hints {
			ns := hint.Namespace
			if ns == "" {
				ns = "(no namespace)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ns, hint.Location)
		}
		return nil
	},
}

var streamCmd = &cobra.Command{
	Use:   "stream [source]",
	Short: "Stream the document elements, lazily for positive --lazy depths",
	Long:  "Stream iterates the document in document order and prints one line per\nelement tag. With --lazy the tree is pruned while it is consumed, so\narbitrarily large documents stream in bounded memory.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := cmd.Flags().GetString("tag")
		if err != nil {
			return err
		}
		r, err := openResource(args)
		if err != nil {
			return err
		}
		defer r.Close()

		count := 0
		for elem, iterErr := range r.Iter(tag) {
			if iterErr != nil {
				return iterErr
			}
			count++
			fmt.Fprintln(cmd.OutOrStdout(), elem.Tag())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d elements\n", count)
		return nil
	},
}

func init() {
	streamCmd.Flags().String("tag", "", "only print elements with this tag, Clark notation for namespaced tags")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
