// Package mainboilerplate contains shared boilerplate of cinedex programs.
package mainboilerplate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
)

// MustParseConfig parses the Parser from an optional INI file, then from
// environment bindings and explicit flags, which take precedence. The
// first file named |configName| found in configSearchPath is used.
func MustParseConfig(parser *flags.Parser, configName string) {
	var prior = parser.Options
	parser.Options |= flags.IgnoreUnknown // INI files may configure other programs.

	var ini = flags.NewIniParser(parser)
	for _, dir := range configSearchPath() {
		var err = ini.ParseFile(filepath.Join(dir, configName))
		if err == nil {
			break
		} else if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	parser.Options = prior
	MustParseArgs(parser)
}

// configSearchPath is the working directory, ~/.config/cinedex of the
// user's home, and $CINEDEX_CONFIG_ROOT if set.
func configSearchPath() []string {
	var out = []string{"."}
	for _, home := range []string{os.Getenv("HOME"), os.Getenv("UserProfile")} {
		if home != "" {
			out = append(out, filepath.Join(home, ".config", "cinedex"))
		}
	}
	if root := os.Getenv("CINEDEX_CONFIG_ROOT"); root != "" {
		out = append(out, root)
	}
	return out
}

// MustParseArgs requires that the Parser parse os.Args without error.
func MustParseArgs(parser *flags.Parser) {
	var _, err = parser.ParseArgs(os.Args[1:])
	if err == nil {
		return
	}
	var flagErr, ok = err.(*flags.Error)
	if !ok {
		Must(err, "fatal error")
	}

	switch flagErr.Type {
	case flags.ErrDuplicatedFlag, flags.ErrTag, flags.ErrInvalidTag, flags.ErrShortNameTooLong, flags.ErrMarshal:
		panic(err) // The configuration struct itself is malformed.

	case flags.ErrCommandRequired:
		os.Stderr.WriteString("\n")
		writeUsage(parser)

	case flags.ErrHelp:
		if parser.Options&flags.PrintErrors == 0 {
			writeUsage(parser)
		}
	}
	// Other errors are of input, which go-flags has already printed.
	os.Exit(1)
}

func writeUsage(parser *flags.Parser) {
	parser.WriteHelp(os.Stderr)
	fmt.Fprintf(os.Stderr, "\nVersion %s, built at %s.\n", Version, BuildDate)
}

// AddPrintConfigCmd adds a "print-config" command to the Parser, which
// writes the combined runtime configuration in INI format.
func AddPrintConfigCmd(parser *flags.Parser, configName string) {
	parser.AddCommand("print-config", "Print combined configuration and exit", `
print-config parses the combined configuration from `+configName+`, flags,
and environment variables, and then writes the configuration to stdout in INI format.
`, &printConfig{parser})
}

type printConfig struct {
	*flags.Parser `no-flag:"t"`
}

func (p printConfig) Execute([]string) error {
	flags.NewIniParser(p.Parser).Write(os.Stdout,
		flags.IniIncludeComments|flags.IniCommentDefaults|flags.IniIncludeDefaults)
	return nil
}

// Version and BuildDate are set at link time, eg:
//
//	go build -ldflags "-X go.cinedex.dev/core/mainboilerplate.Version=v1.2.0"
var (
	Version   = "development"
	BuildDate = "unknown"
)
