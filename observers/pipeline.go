// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package observers

import (
	"github.com/pkg/errors"

	"github.com/vechain/tally/model"
	"github.com/vechain/tally/validation"
)

// Validator checks a notification against the state.
type Validator interface {
	Name() string
	Validate(n model.Notification, ctx *Context) validation.Result
}

// Observer applies a notification to the state.
type Observer interface {
	Name() string
	Notify(n model.Notification, ctx *Context) error
}

type validatorFunc struct {
	name string
	fn   func(model.Notification, *Context) validation.Result
}

func (v *validatorFunc) Name() string { return v.name }
func (v *validatorFunc) Validate(n model.Notification, ctx *Context) validation.Result {
	return v.fn(n, ctx)
}

// NewValidator creates a validator from a function.
func NewValidator(name string, fn func(model.Notification, *Context) validation.Result) Validator {
	return &validatorFunc{name, fn}
}

type observerFunc struct {
	name string
	fn   func(model.Notification, *Context) error
}

func (o *observerFunc) Name() string { return o.name }
func (o *observerFunc) Notify(n model.Notification, ctx *Context) error {
	return o.fn(n, ctx)
}

// NewObserver creates an observer from a function.
func NewObserver(name string, fn func(model.Notification, *Context) error) Observer {
	return &observerFunc{name, fn}
}

// ValidatorPipeline runs validators in order, stopping at the first non-success result.
type ValidatorPipeline []Validator

// Validate implements Validator-like dispatch over the pipeline.
func (p ValidatorPipeline) Validate(n model.Notification, ctx *Context) validation.Result {
	for _, v := range p {
		if r := v.Validate(n, ctx); !r.IsSuccess() {
			logger.Debug("notification rejected", "validator", v.Name(), "kind", n.Kind(), "result", r)
			return r
		}
	}
	return validation.Success
}

// ObserverPipeline runs observers in order, or in reverse order on rollback,
// stopping at the first error.
type ObserverPipeline []Observer

// Notify dispatches n to the observers.
func (p ObserverPipeline) Notify(n model.Notification, ctx *Context) error {
	notify := func(o Observer) error {
		return errors.Wrapf(o.Notify(n, ctx), "observer %v on %v", o.Name(), n.Kind())
	}
	if ctx.Mode == Rollback {
		for i := len(p) - 1; i >= 0; i-- {
			if err := notify(p[i]); err != nil {
				return err
			}
		}
		return nil
	}
	for _, o := range p {
		if err := notify(o); err != nil {
			return err
		}
	}
	return nil
}
