// Command pbwire decodes protobuf payloads. Without a schema it prints the
// raw wire entries; with -proto and -type it prints the message as JSON.
// With -encode it reads JSON and writes the binary payload instead.
package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	pbkit "github.com/pbkit/pbkit-sub000"
	"github.com/pbkit/pbkit-sub000/codec"
	"github.com/pbkit/pbkit-sub000/internal/logging"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	config   string
	proto    string
	includes stringList
	typeName string
	encode   bool
	hexIO    bool
	input    string
}

func main() {
	log := logging.New("pbwire")
	if err := run(os.Args[1:], os.Stdin, os.Stdout, log); err != nil {
		log.Error().Err(err).Msg("pbwire failed")
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pbwire", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.config, "config", "", "TOML codec config file")
	fs.StringVar(&opts.proto, "proto", "", ".proto file or directory to load")
	fs.Var(&opts.includes, "I", "import directory (repeatable)")
	fs.StringVar(&opts.typeName, "type", "", "message type to decode as")
	fs.BoolVar(&opts.encode, "encode", false, "read JSON and write the binary payload")
	fs.BoolVar(&opts.hexIO, "hex", false, "payloads are hex text instead of raw bytes")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: pbwire [flags] [file]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	switch fs.NArg() {
	case 0:
	case 1:
		opts.input = fs.Arg(0)
	default:
		return opts, fmt.Errorf("at most one input file, got %d", fs.NArg())
	}
	if opts.encode && opts.typeName == "" {
		return opts, errors.New("-encode needs -type")
	}
	if opts.typeName != "" && opts.proto == "" {
		return opts, errors.New("-type needs -proto")
	}
	return opts, nil
}

func loadConfig(path string) (codec.Config, error) {
	cfg := codec.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = codec.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	return cfg.ApplyEnv(), nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func run(args []string, stdin io.Reader, stdout io.Writer, log zerolog.Logger) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts.config)
	if err != nil {
		return err
	}

	data, err := readInput(opts.input, stdin)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if opts.hexIO && !opts.encode {
		if data, err = hex.DecodeString(strings.TrimSpace(string(data))); err != nil {
			return fmt.Errorf("decode hex input: %w", err)
		}
	}

	kit := pbkit.New(
		pbkit.WithProtoDirectories(opts.includes...),
		pbkit.WithConfig(cfg),
		pbkit.WithLogger(log),
	)

	if opts.typeName == "" {
		fields, err := kit.Inspect(data)
		if err != nil {
			return err
		}
		log.Debug().Int("bytes", len(data)).Int("fields", len(fields)).Msg("inspected payload")
		return writeJSON(stdout, fields)
	}

	if err := kit.LoadSchemaFile(opts.proto); err != nil {
		return err
	}
	log.Debug().Str("proto", opts.proto).Int("messages", len(kit.ListMessages())).Msg("schema loaded")

	if opts.encode {
		value, err := kit.DecodeJSON(data, opts.typeName)
		if err != nil {
			return err
		}
		out, err := kit.Marshal(value, opts.typeName)
		if err != nil {
			return err
		}
		if opts.hexIO {
			_, err = fmt.Fprintln(stdout, hex.EncodeToString(out))
			return err
		}
		_, err = stdout.Write(out)
		return err
	}

	value, err := kit.Unmarshal(data, opts.typeName)
	if err != nil {
		return err
	}
	out, err := kit.EncodeJSON(value, opts.typeName)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s\n", out)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
