// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/nmstate-tools/nncpkit/internal/policy"
	"github.com/nmstate-tools/nncpkit/internal/remote"
	"github.com/nmstate-tools/nncpkit/internal/util"
)

var (
	// ApplyCmd applies a policy definition and manages its lifecycle.
	ApplyCmd = &Command{
		Name:      "apply",
		UsageLine: "nncpkit apply --policy-file <file> [--config-file <file>] [--hold <duration>]",
		ShortDesc: "Applies a node network configuration policy and waits for it to be configured",
		LongDesc: `Reads a policy definition from a YAML file, applies it to the cluster and waits
until the NMState handler reports it successfully configured and every targeted
node lists the created interface as up. The policy is then held for the requested
duration and released, which reverts the change and deletes the resource unless
teardown was disabled in the definition.

Flags:
	--policy-file
		Path of the YAML file containing the policy definition
	--config-file
		Path of an optional YAML file overriding the lifecycle timeouts
	--hold
		How long to hold the acquired policy before releasing it <optional>
`,
		AddFlags: addApplyFlags,
		Run:      runApply,
	}
	opts = applyOptions{}
)

type applyOptions struct {
	// PolicyFile is the path of the YAML policy definition.
	PolicyFile string
	// ConfigFile is the path of an optional YAML file overriding the lifecycle timeouts.
	ConfigFile string
	// Hold is how long to hold the acquired policy before releasing it.
	Hold time.Duration
}

func addApplyFlags(fs *flag.FlagSet) {
	fs.StringVar(&opts.PolicyFile, "policy-file", "", "Path of the YAML file containing the policy definition")
	fs.StringVar(&opts.ConfigFile, "config-file", "", "Path of an optional YAML file overriding the lifecycle timeouts")
	fs.DurationVar(&opts.Hold, "hold", 0, "How long to hold the acquired policy before releasing it")
}

func runApply(ctx context.Context, logger logr.Logger) error {
	if strings.TrimSpace(opts.PolicyFile) == "" {
		return fmt.Errorf("--policy-file is required")
	}
	spec, err := util.ReadAndUnmarshall[policy.Spec](opts.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to read policy definition %s: %w", opts.PolicyFile, err)
	}
	var config *policy.Config
	if opts.ConfigFile != "" {
		if config, err = policy.LoadConfig(opts.ConfigFile); err != nil {
			return fmt.Errorf("failed to load lifecycle config %s: %w", opts.ConfigFile, err)
		}
	}

	restConfig := ctrl.GetConfigOrDie()
	c, err := client.New(restConfig, client.Options{})
	if err != nil {
		return fmt.Errorf("failed to create cluster client: %w", err)
	}
	executor, err := remote.NewExecutor(restConfig)
	if err != nil {
		return err
	}

	pol, err := policy.New(c, executor, *spec, config)
	if err != nil {
		return err
	}
	if err := pol.Acquire(ctx); err != nil {
		return err
	}
	logger.Info("policy is ready", "policy", pol.Name(), "phase", pol.Phase())
	if opts.Hold > 0 {
		if err := util.SleepWithContext(ctx, opts.Hold); err != nil {
			logger.Info("hold interrupted, releasing policy", "policy", pol.Name())
		}
	}
	return pol.Release(ctx)
}
