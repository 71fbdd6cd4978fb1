// Command-line interface to BrainIO catalogs.
// Lists, fetches and inspects assemblies and stimulus sets, and appends catalog records.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"syscall"

	"github.com/dapello/brainio"
	"github.com/dapello/brainio/assemblies"
	"github.com/dapello/brainio/core"
	"github.com/dapello/brainio/fetch"
	"github.com/dapello/brainio/lookup"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Path to TOML configuration.  Leave unset for registered catalogs and default home.
	configFile = flag.String("config", "", "")

	// Profile CPU usage using standard gotest system.
	cpuprofile = flag.String("cpuprofile", "", "")
)

const helpMessage = `
brainio fetches and inspects brain recording assemblies and stimulus sets

Usage: brainio [options] <command>

      -config     =string   Path to TOML configuration file.
      -cpuprofile =string   Write CPU profile to this file.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Commands:

	about
	catalogs
	list      assemblies | stimulus_sets
	show      <assembly identifier>
	stimuli   <stimulus set identifier>
	prefetch  <identifier> ...
	hash      <file>
	convert   <input file> <output file>
	append    <catalog> <file> kind=<assembly|stimulus_set> id=<identifier> bucket=<bucket> key=<key>
	          [class=<class>] [type=<location type>] [stimulus_set=<identifier>]

Local cache is $BRAINIO_HOME if set, else ~/.brainio, unless configured.
`

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = func() { fmt.Print(helpMessage) }
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}
	if *runVerbose {
		core.SetLogMode(core.DebugMode)
	} else {
		core.SetLogMode(core.WarningMode)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	// Capture ctrl+c and other interrupts so in-flight downloads are abandoned.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := DoCommand(ctx, flag.Args())
	core.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newClient() (*brainio.Client, error) {
	cfg := brainio.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = brainio.LoadConfig(*configFile); err != nil {
			return nil, err
		}
	}
	return brainio.New(cfg)
}

// DoCommand serves as a switchboard for commands.
func DoCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("blank command")
	}
	name, args := strings.ToLower(args[0]), args[1:]

	// Commands that need no catalogs.
	switch name {
	case "about":
		fmt.Printf("Fetch engines: %s\n", fetch.EnginesAvailable())
		return nil
	case "hash":
		if len(args) != 1 {
			return fmt.Errorf("hash command must be followed by a file path")
		}
		sha1, err := core.HashFile(args[0])
		if err != nil {
			return err
		}
		fmt.Println(sha1)
		return nil
	case "convert":
		return DoConvert(args)
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	switch name {
	case "catalogs":
		names, err := client.Resolver().CatalogNames()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
	case "list":
		return DoList(client, args)
	case "show":
		if len(args) != 1 {
			return fmt.Errorf("show command must be followed by an assembly identifier")
		}
		assy, err := client.GetAssembly(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(assy)
	case "stimuli":
		if len(args) != 1 {
			return fmt.Errorf("stimuli command must be followed by a stimulus set identifier")
		}
		s, err := client.GetStimulusSet(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Stimulus set %q: %d stimuli\n", args[0], s.Len())
		for _, id := range s.ImageIDs() {
			p, err := s.ImagePath(id)
			if err != nil {
				p = "(no image)"
			}
			fmt.Printf("  %s\t%s\n", id, p)
		}
	case "prefetch":
		if len(args) == 0 {
			return fmt.Errorf("prefetch command must be followed by one or more identifiers")
		}
		if err := client.Prefetch(ctx, args...); err != nil {
			return err
		}
		fmt.Printf("Fetched %d identifiers into %s\n", len(args), client.Fetcher().Home())
	case "append":
		return DoAppend(client, args)
	default:
		return fmt.Errorf("unknown command %q; use -help for usage", name)
	}
	return nil
}

// DoList performs the "list" command.
func DoList(client *brainio.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("list command must be followed by 'assemblies' or 'stimulus_sets'")
	}
	var ids []string
	var err error
	switch args[0] {
	case "assemblies":
		ids, err = client.ListAssemblies()
	case "stimulus_sets":
		ids, err = client.ListStimulusSets()
	default:
		return fmt.Errorf("cannot list %q", args[0])
	}
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

// DoConvert performs the "convert" command, rewriting an assembly as netCDF or as
// the native binary format depending on the output extension.
func DoConvert(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("convert command must be followed by input and output paths")
	}
	assy, err := assemblies.Load(args[0], "")
	if err != nil {
		return err
	}
	if strings.ToLower(filepath.Ext(args[1])) == ".nc" {
		return assemblies.SaveNetCDF(args[1], assy)
	}
	return assemblies.Save(args[1], assy)
}

// settings parses "key=value" arguments.
func settings(args []string) (map[string]string, error) {
	kv := make(map[string]string, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("expected key=value setting, got %q", arg)
		}
		kv[strings.ToLower(parts[0])] = parts[1]
	}
	return kv, nil
}

// DoAppend performs the "append" command, hashing a local file and recording its
// remote location in a catalog.
func DoAppend(client *brainio.Client, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("append command must be followed by a catalog name and file path")
	}
	kv, err := settings(args[2:])
	if err != nil {
		return err
	}
	sha1, err := lookup.SHA1Hash(args[1])
	if err != nil {
		return err
	}
	req := lookup.AppendRequest{
		Identifier:            kv["id"],
		Class:                 kv["class"],
		Kind:                  lookup.Kind(kv["kind"]),
		Location:              lookup.StoreLocation{Type: kv["type"], Bucket: kv["bucket"], Key: kv["key"]},
		SHA1:                  sha1,
		StimulusSetIdentifier: kv["stimulus_set"],
	}
	rec, err := client.Resolver().Append(args[0], req)
	if err != nil {
		return err
	}
	fmt.Printf("Appended to catalog %q: %s\n", args[0], rec)
	return nil
}
