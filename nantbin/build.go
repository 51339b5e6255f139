// Copyright (C) 2022  Shanhu Tech Inc.
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the
// Free Software Foundation, either version 3 of the License, or (at your
// option) any later version.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License
// for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package nantbin

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	nant "github.com/skolima/NAnt"
	"shanhu.io/misc/errcode"
	"shanhu.io/text/lexing"
)

var (
	setNameColor = color.New(color.FgCyan, color.Bold)
	countColor   = color.New(color.FgGreen)
)

func cmdList(args []string) error {
	flags := cmdFlags.New()
	config := new(nant.Config)
	declareBuildFlags(flags, config)
	args = flags.ParseArgs(args)

	if len(args) == 0 {
		return errcode.InvalidArgf("no file set given")
	}

	wd, err := os.Getwd()
	if err != nil {
		return errcode.Annotate(err, "get work dir")
	}

	b := nant.NewBuilder(wd, config)
	for _, name := range args {
		files, errs := b.FileNames(name)
		if errs != nil {
			lexing.FprintErrs(os.Stderr, errs, wd)
			return errcode.InvalidArgf(
				"list %q got %d errors", name, len(errs),
			)
		}

		setNameColor.Printf("%s", name)
		countColor.Printf(" (%d files)\n", len(files))
		for _, f := range files {
			fmt.Println(f)
		}
	}
	return nil
}

func cmdBuild(args []string) error {
	flags := cmdFlags.New()
	config := new(nant.Config)
	declareBuildFlags(flags, config)
	args = flags.ParseArgs(args)

	wd, err := os.Getwd()
	if err != nil {
		return errcode.Annotate(err, "get work dir")
	}

	b := nant.NewBuilder(wd, config)
	if errs := b.Build(args); errs != nil {
		lexing.FprintErrs(os.Stderr, errs, wd)
		return errcode.InvalidArgf("build got %d errors", len(errs))
	}
	return nil
}

func cmdScan(args []string) error {
	var (
		dir        string
		include    string
		exclude    string
		noDefaults bool
		ignoreCase bool
	)
	flags := cmdFlags.New()
	flags.StringVar(&dir, "dir", ".", "directory to scan")
	flags.StringVar(&include, "include", "", "include pattern")
	flags.StringVar(&exclude, "exclude", "", "exclude pattern")
	flags.BoolVar(
		&noDefaults, "no_default_excludes", false,
		"disable default exclude patterns",
	)
	flags.BoolVar(
		&ignoreCase, "ignore_case", false, "match case-insensitively",
	)
	args = flags.ParseArgs(args)
	if len(args) != 0 {
		return errcode.InvalidArgf("unexpected arguments: %q", args)
	}

	s := nant.NewDirScanner(dir)
	if include != "" {
		s.AddInclude(include)
	}
	if exclude != "" {
		s.AddExclude(exclude)
	}
	s.SetDefaultExcludes(!noDefaults)
	s.SetCaseSensitive(!ignoreCase)

	files, err := s.Scan()
	if err != nil {
		return errcode.Annotate(err, "scan")
	}
	for _, f := range files {
		fmt.Println(f)
	}
	return nil
}
