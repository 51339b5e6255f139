package nantbin

import (
	nant "github.com/skolima/NAnt"
	"shanhu.io/misc/flagutil"
)

var cmdFlags = flagutil.NewFactory("nant")

func declareBuildFlags(flags *flagutil.FlagSet, c *nant.Config) {
	flags.StringVar(&c.Src, "src", "", "source directory")
	flags.StringVar(&c.Out, "out", "out", "output directory")
	flags.StringVar(
		&c.Framework, "framework", "",
		"platform framework directory for reference fallback",
	)
	flags.StringVar(
		&c.PathVar, "pathvar", "",
		"search path environment variable for from-path entries",
	)
	flags.BoolVar(
		&c.Strict, "strict", false,
		"fail on scan warnings and unresolved references",
	)
}
