// Command natctl builds and inspects corpus directories.
//
// Usage:
//
//	natctl build --out corpora/europarl en.txt pt.txt
//	natctl grep corpora/europarl the cat
//	natctl rank corpora/europarl 1 scores.txt
//	natctl ngrams corpora/europarl
//	natctl dict corpora/europarl en-pt.tsv
//	natctl query -- "-> 1 cat"
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/logger"
)

// Globals are flags shared by every command.
type Globals struct {
	Config   string `help:"Path to config file; built-in defaults when empty." type:"path" env:"NAT_CONFIG"`
	LogLevel string `name:"log-level" help:"Log level." default:"info" enum:"debug,info,warn,error"`
}

var cli struct {
	Globals

	Build  BuildCmd  `cmd:"" help:"Index sentence-aligned text files into a corpus directory"`
	Info   InfoCmd   `cmd:"" help:"Describe a corpus directory"`
	Grep   GrepCmd   `cmd:"" help:"Run a concordance query against a corpus directory"`
	Rank   RankCmd   `cmd:"" help:"Attach quality scores to the sentences of a chunk"`
	Ngrams NgramsCmd `cmd:"" help:"Build the n-gram databases of a corpus"`
	Dict   DictCmd   `cmd:"" help:"Import a translation dictionary"`
	Query  QueryCmd  `cmd:"" help:"Send one request line to a running server"`
}

// env is bound into every command's Run method.
type env struct {
	ctx context.Context
	cfg *config.Config
	out io.Writer
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("natctl"),
		kong.Description("Parallel corpus concordance tools"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	cfg, err := config.Load(cli.Config)
	kctx.FatalIfErrorf(err)
	logger.SetupWriter(os.Stderr, cli.LogLevel, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&env{ctx: ctx, cfg: cfg, out: os.Stdout})
	kctx.FatalIfErrorf(err)
}
