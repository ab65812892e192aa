/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// The anchor tool derives the hardware identity of this device, issues
// counter-bound receipts and verifies them against a local registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"k8s.io/klog/v2"
)

const usage = `usage: anchor [-config anchor.yaml] <command> [flags]

commands:
  identity                                print the hardware identity
  receipt -exec 0x.. [-format json|cbor]  issue a receipt for an execution hash
  inspect                                 render a CBOR receipt read from stdin
  verify [-in report.json]                verify a JSON receipt report
  authorize -identity 0x.. -name ..       allow a hardware identity
  revoke -identity 0x..                   revoke a hardware identity
  approve-firmware -hash 0x.. -version ..  approve a firmware hash
  status -identity 0x..                   show verifier state for an identity
`

var configFile = flag.String("config", "", "YAML configuration file. Defaults to a development host configuration.")

func main() {
	klog.InitFlags(nil)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	defer klog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *configFile, flag.Args(), os.Stdin, os.Stdout); err != nil {
		klog.Exitf("anchor: %v", err)
	}
}

func run(ctx context.Context, configPath string, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	cmdErr := cmd(ctx, app, args[1:], stdin, stdout)
	if err := app.writeMetrics(); err != nil {
		klog.Warningf("write metrics: %v", err)
	}
	return cmdErr
}
