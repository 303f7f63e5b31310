/*
 * wopt - A WebAssembly instruction optimizer
 *
 * Copyright Wopt Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// wopt parses a module in the textual format, runs the optimization
// passes over it, and prints the optimized module.

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/k0kubun/pp/v3"
	"github.com/logrusorgru/aurora/v4"

	"github.com/wasmkit/wopt/parser"
	"github.com/wasmkit/wopt/passes"
)

var dumpFlag = flag.Bool("dump", false, "dump the optimized module as a tree instead of text")
var noOptFlag = flag.Bool("no-opt", false, "only parse and print, do not optimize")

func main() {
	flag.Parse()
	args := flag.Args()

	var source []byte
	var err error
	switch len(args) {
	case 0:
		source, err = io.ReadAll(bufio.NewReader(os.Stdin))
	case 1:
		source, err = os.ReadFile(args[0])
	default:
		_, _ = fmt.Fprintln(os.Stderr, "usage: wopt [-dump] [-no-opt] [file]")
		os.Exit(1)
	}
	if err != nil {
		exitWithError(err)
	}

	module, err := parser.ParseModule(string(source))
	if err != nil {
		exitWithError(err)
	}

	if !*noOptFlag {
		runner := passes.NewRunner(
			passes.NewOptimizeInstructions(),
		)
		if err := runner.Run(module); err != nil {
			exitWithError(err)
		}
	}

	if *dumpFlag {
		_, _ = pp.Print(module)
		return
	}

	fmt.Println(module.String())
}

func exitWithError(err error) {
	message := aurora.Colorize(
		err.Error(),
		aurora.RedFg|aurora.BrightFg|aurora.BoldFm,
	).String()
	_, _ = fmt.Fprintln(os.Stderr, message)
	os.Exit(1)
}
