package inline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/ianaindex"

	"mailcss/config"
	"mailcss/css"
	"mailcss/state"
)

// Run implements the "inline" subcommand.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("inline")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input document has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Overwrite = cmd.Bool("overwrite")

	// Old documents may come in archaic encodings, meta-based sniffing
	// handles most of them but can always be overridden
	if cp := cmd.String("force-cp"); len(cp) > 0 {
		if env.CodePage, err = ianaindex.IANA.Encoding(cp); err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully decoding input", zap.String("charset", n))
		}
	}

	extra, err := readStylesheets(append(env.Cfg.Inline.Stylesheets, cmd.StringSlice("css")...), log)
	if err != nil {
		return err
	}

	out, dst, err := openDestination(src, cmd.Args().Get(1), env.Overwrite)
	if err != nil {
		return err
	}
	defer func() {
		if out != os.Stdout {
			out.Close()
		}
	}()

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open source document: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if env.CodePage != nil {
		r = env.CodePage.NewDecoder().Reader(f)
	} else if r, err = charset.NewReader(f, "text/html"); err != nil {
		return fmt.Errorf("unable to detect document encoding: %w", err)
	}

	return New(log, env.Cfg.Inline.MediaTypes).Inline(r, out, extra...)
}

// RunExtract implements the "extract" subcommand - a debugging aid dumping
// what the rule extractor and the at-rule renderer see in a stylesheet.
func RunExtract(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("extract")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input stylesheet has been specified")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet: %w", err)
	}

	sheet := css.NewParser(log).Parse(data, src)
	for _, w := range sheet.Warnings {
		log.Warn("Parser warning", zap.String("warning", w))
	}

	rules := sheet.StyleRules(env.Cfg.Inline.MediaTypes)
	fmt.Printf("Style rules (%d):\n", len(rules))
	for _, r := range rules {
		fmt.Printf("  [%s] %s { %s }\n", r.Media, r.Selectors, r.Declarations)
	}
	if imports := sheet.Imports(); len(imports) > 0 {
		fmt.Printf("Imports (%d):\n", len(imports))
		for _, raw := range imports {
			fmt.Printf("  %s\n", raw)
		}
	}
	fmt.Printf("Preserved at-rules:\n  %s\n", sheet.PreservedAtRules())
	return nil
}

// readStylesheets loads extra stylesheets to be applied after the
// document's own styles.
func readStylesheets(paths []string, log *zap.Logger) ([]string, error) {
	var sheets []string
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("unable to read stylesheet '%s': %w", p, err)
		}
		log.Debug("Loaded extra stylesheet", zap.String("path", p), zap.Int("bytes", len(data)))
		sheets = append(sheets, string(data))
	}
	return sheets, nil
}

// openDestination resolves the output location: empty means stdout, an
// existing directory gets a file named after the source.
func openDestination(src, dst string, overwrite bool) (*os.File, string, error) {
	if len(dst) == 0 {
		return os.Stdout, "STDOUT", nil
	}
	if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
		dst = filepath.Join(dst, config.CleanFileName(strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))+".inlined.html"))
	}
	if _, err := os.Stat(dst); err == nil && !overwrite {
		return nil, "", fmt.Errorf("destination '%s' already exists", dst)
	}
	out, err := os.Create(dst)
	if err != nil {
		return nil, "", fmt.Errorf("unable to create destination '%s': %w", dst, err)
	}
	return out, dst, nil
}
