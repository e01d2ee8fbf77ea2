// crater-report-analyzer classifies the failed build logs of crater
// experiments by known failure signatures.
package main

import (
	"os"

	"github.com/openshift/crater-report-analyzer/pkg/analyzer"
)

func main() {
	cmd := analyzer.NewCommand()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
