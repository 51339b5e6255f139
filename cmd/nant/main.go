package main

import (
	"github.com/skolima/NAnt/nantbin"
)

func main() { nantbin.Main() }
