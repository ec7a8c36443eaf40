package cli

import (
	"errors"
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Firefox  *FirefoxCommand
	Chromium *ChromiumCommand
	Unknown  *UnknownCommand
	History  *HistoryCommand
	Prune    *PruneCommand
	Status   *StatusCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.HelpFlag|goflags.PassDoubleDash)
	parser.Name = "browser-defrag"
	parser.LongDescription = "Compact the SQLite databases in browser profiles with VACUUM and REINDEX."

	cmds := &commands{
		Firefox:  &FirefoxCommand{globals: &globals, version: version},
		Chromium: &ChromiumCommand{globals: &globals, version: version},
		Unknown:  &UnknownCommand{globals: &globals, version: version},
		History:  &HistoryCommand{globals: &globals, version: version},
		Prune:    &PruneCommand{globals: &globals, version: version},
		Status:   &StatusCommand{globals: &globals, version: version},
	}

	parser.AddCommand("firefox", "Defragment Firefox profiles", "Defragment the databases of every profile listed in ~/.mozilla/firefox/profiles.ini.", cmds.Firefox)
	parser.AddCommand("chromium", "Defragment the Chromium profile", "Defragment the databases under $XDG_CONFIG_HOME/chromium (or ~/.config/chromium).", cmds.Chromium)
	parser.AddCommand("unknown", "Defragment an explicit profile directory", "Defragment the databases under --profile-path for a browser without auto-discovery.", cmds.Unknown)
	parser.AddCommand("history", "List past runs", "List recorded defrag runs, newest first, or show one run with --id.", cmds.History)
	parser.AddCommand("prune", "Delete old run history", "Delete recorded runs older than the retention period.", cmds.Prune)
	parser.AddCommand("status", "Summarize run history", "Show run history statistics and configuration summary.", cmds.Status)

	return parser, &globals, cmds
}

// Run is the main entry point using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// --version is valid without a subcommand, which go-flags would reject.
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("browser-defrag %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		var flagsErr *goflags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == goflags.ErrHelp {
			fmt.Println(flagsErr.Message)
			return nil
		}
		return err
	}

	return nil
}
