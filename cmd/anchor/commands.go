/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kentakayama/ohr-anchor/internal/anchor"
	"github.com/kentakayama/ohr-anchor/internal/domain/model"
	"github.com/kentakayama/ohr-anchor/internal/util"
)

type command func(ctx context.Context, a *app, args []string, stdin io.Reader, stdout io.Writer) error

var commands = map[string]command{
	"identity":         identityCmd,
	"receipt":          receiptCmd,
	"inspect":          inspectCmd,
	"verify":           verifyCmd,
	"authorize":        authorizeCmd,
	"revoke":           revokeCmd,
	"approve-firmware": approveFirmwareCmd,
	"status":           statusCmd,
}

// receiptLabels names the integer keys of a CBOR receipt.
var receiptLabels = util.KeyLabels{
	1: "receipt_digest",
	2: "hardware_identity",
	3: "counter",
	4: "firmware_hash",
	5: "execution_hash",
	6: "provenance",
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDigestFlag(name, value string) (model.Digest, error) {
	if value == "" {
		return model.Digest{}, fmt.Errorf("-%s is required", name)
	}
	d, err := model.ParseDigest(value)
	if err != nil {
		return model.Digest{}, fmt.Errorf("-%s: %w", name, err)
	}
	return d, nil
}

func identityCmd(ctx context.Context, a *app, args []string, _ io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("identity", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := a.anchor.HardwareIdentity(ctx)
	if err != nil {
		return err
	}
	return writeJSON(stdout, id)
}

func receiptCmd(ctx context.Context, a *app, args []string, _ io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("receipt", flag.ContinueOnError)
	execFlag := fs.String("exec", "", "Keccak-256 hash of the execution result, 64 hex characters.")
	format := fs.String("format", "json", "Output format: json or cbor.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	exec, err := parseDigestFlag("exec", *execFlag)
	if err != nil {
		return err
	}
	if *format != "json" && *format != "cbor" {
		return fmt.Errorf("-format must be json or cbor, got %q", *format)
	}

	r, err := a.anchor.GenerateReceipt(ctx, exec)
	if err != nil {
		return err
	}
	if *format == "cbor" {
		b, err := anchor.EncodeReceipt(r)
		if err != nil {
			return err
		}
		_, err = stdout.Write(b)
		return err
	}
	return writeJSON(stdout, r.Report())
}

func inspectCmd(_ context.Context, _ *app, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return err
	}
	out, err := util.RenderCBOR(data, receiptLabels)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, out)
	return err
}

func verifyCmd(ctx context.Context, a *app, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	in := fs.String("in", "", "JSON receipt report to verify. Reads stdin when empty.")
	if err := fs.Parse(args); err != nil {
		return err
	}

	src := stdin
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	var report model.ReceiptReport
	if err := json.NewDecoder(src).Decode(&report); err != nil {
		return fmt.Errorf("decode receipt report: %w", err)
	}
	verdict, err := a.verifier.Verify(ctx, &report)
	if err != nil {
		return err
	}
	return writeJSON(stdout, verdict)
}

func authorizeCmd(ctx context.Context, a *app, args []string, _ io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("authorize", flag.ContinueOnError)
	idFlag := fs.String("identity", "", "Hardware identity to authorize.")
	name := fs.String("name", "", "Human readable node name.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	hw, err := parseDigestFlag("identity", *idFlag)
	if err != nil {
		return err
	}
	if err := a.verifier.AuthorizeNode(ctx, hw, *name); err != nil {
		return err
	}
	return statusOf(ctx, a, hw, stdout)
}

func revokeCmd(ctx context.Context, a *app, args []string, _ io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	idFlag := fs.String("identity", "", "Hardware identity to revoke.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	hw, err := parseDigestFlag("identity", *idFlag)
	if err != nil {
		return err
	}
	if err := a.verifier.RevokeNode(ctx, hw); err != nil {
		return err
	}
	return statusOf(ctx, a, hw, stdout)
}

func approveFirmwareCmd(ctx context.Context, a *app, args []string, _ io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("approve-firmware", flag.ContinueOnError)
	hashFlag := fs.String("hash", "", "Keccak-256 firmware hash to approve.")
	version := fs.String("version", "", "Semantic version of the firmware, e.g. 1.2.0.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	hash, err := parseDigestFlag("hash", *hashFlag)
	if err != nil {
		return err
	}
	if err := a.verifier.ApproveFirmware(ctx, hash, *version); err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "approved %s as %s\n", hash, *version)
	return err
}

func statusCmd(ctx context.Context, a *app, args []string, _ io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	idFlag := fs.String("identity", "", "Hardware identity to look up.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	hw, err := parseDigestFlag("identity", *idFlag)
	if err != nil {
		return err
	}
	return statusOf(ctx, a, hw, stdout)
}

func statusOf(ctx context.Context, a *app, hw model.Digest, stdout io.Writer) error {
	status, err := a.verifier.NodeStatus(ctx, hw)
	if err != nil {
		return err
	}
	return writeJSON(stdout, status)
}
