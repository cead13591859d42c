// Package deploy implements the template deployment decision machine
// and the deployer that executes its outcomes.
package deploy

import (
	"fmt"

	"claudepm/internal/template"
	"claudepm/internal/version"
)

// State classifies the target file before a deployment attempt.
type State string

const (
	StateNoTarget          State = "NO_TARGET"
	StateNotTemplate       State = "TARGET_NOT_TEMPLATE"
	StateTemplateForce     State = "TARGET_TEMPLATE_FORCE"
	StateTemplateNoVersion State = "TARGET_TEMPLATE_NO_VERSION_INFO"
	StateTemplateVersioned State = "TARGET_TEMPLATE_VERSIONED"
)

// Action is the outcome of a decision.
type Action string

const (
	ActionDeploy        Action = "deploy"
	ActionSkip          Action = "skip"           // overridable with force
	ActionSkipPermanent Action = "skip_permanent" // force-immune
)

// Decision is the full outcome of evaluating a target against a new
// template version.
type Decision struct {
	Action          Action
	State           State
	Reason          string
	ExistingVersion string
	NewVersion      string
}

// Decide evaluates whether newVersion should be deployed over the
// target. Checks run in a fixed priority order, first match wins:
//
//  1. target missing          -> deploy
//  2. target not a template   -> skip permanently, even under force;
//     honoring force before this check would let a caller clobber an
//     arbitrary user file
//  3. force flag              -> deploy
//  4. missing version info    -> deploy (permissive default)
//  5. version comparison      -> skip when existing >= new
func Decide(existingContent string, targetExists bool, newVersion string, force bool) Decision {
	if !targetExists {
		return Decision{
			Action:     ActionDeploy,
			State:      StateNoTarget,
			Reason:     "target file does not exist",
			NewVersion: newVersion,
		}
	}

	if !template.IsDeploymentTemplate(existingContent) {
		return Decision{
			Action:     ActionSkipPermanent,
			State:      StateNotTemplate,
			Reason:     "existing file is not a framework deployment template; refusing to overwrite",
			NewVersion: newVersion,
		}
	}

	existingVersion, hasExisting := version.Extract(existingContent)

	if force {
		return Decision{
			Action:          ActionDeploy,
			State:           StateTemplateForce,
			Reason:          "force flag set",
			ExistingVersion: existingVersion,
			NewVersion:      newVersion,
		}
	}

	if !hasExisting || newVersion == "" {
		return Decision{
			Action:          ActionDeploy,
			State:           StateTemplateNoVersion,
			Reason:          "version information missing on one side",
			ExistingVersion: existingVersion,
			NewVersion:      newVersion,
		}
	}

	if version.Compare(existingVersion, newVersion) >= 0 {
		return Decision{
			Action:          ActionSkip,
			State:           StateTemplateVersioned,
			Reason:          fmt.Sprintf("existing version %s is current (new: %s)", existingVersion, newVersion),
			ExistingVersion: existingVersion,
			NewVersion:      newVersion,
		}
	}

	return Decision{
		Action:          ActionDeploy,
		State:           StateTemplateVersioned,
		Reason:          fmt.Sprintf("existing version %s is older than %s", existingVersion, newVersion),
		ExistingVersion: existingVersion,
		NewVersion:      newVersion,
	}
}
