package nant

import (
	"shanhu.io/text/lexing"
)

const (
	nodeSrc  = "src"
	nodeRule = "rule"
	nodeOut  = "out"
)

type buildNode struct {
	name string
	typ  string
	deps []string
	pos  *lexing.Pos

	ruleType string
	rule     buildRule
	ruleMeta *buildRuleMeta
}
