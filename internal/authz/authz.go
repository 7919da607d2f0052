// Package authz decides which roles may move a request out of pending and
// who may drive the archive cleanup by hand.
package authz

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"

	"org-lifecycle/internal/model"
)

//go:embed model.conf
var modelConf string

//go:embed policy.csv
var defaultPolicy string

type Mode string

const (
	ModeEnforce  Mode = "enforce"
	ModeShadow   Mode = "shadow"
	ModeDisabled Mode = "disabled"
)

const (
	ObjectTransfer      = "transfer"
	ObjectDeleteRequest = "delete_request"
	ObjectCleanup       = "cleanup"
)

const (
	ActionApprove = "approve"
	ActionDeny    = "deny"
	ActionRun     = "run"
	ActionRead    = "read"
)

func ParseMode(raw string) (Mode, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ModeEnforce, nil
	}
	switch Mode(raw) {
	case ModeEnforce, ModeShadow, ModeDisabled:
		return Mode(raw), nil
	default:
		return "", errors.New("authz: invalid AUTHZ_MODE (expected enforce|shadow|disabled)")
	}
}

// Checker is what the workflows depend on.
type Checker interface {
	Authorize(ctx context.Context, actor model.Identity, object string, action string) error
}

type Authorizer struct {
	enforcer *casbin.Enforcer
	mode     Mode
	logger   *slog.Logger
}

// New builds an Authorizer from the embedded model. An empty policyPath uses
// the embedded default policy.
func New(policyPath string, mode Mode, logger *slog.Logger) (*Authorizer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m, err := casbinmodel.NewModelFromString(modelConf)
	if err != nil {
		return nil, fmt.Errorf("authz: load model: %w", err)
	}

	var enforcer *casbin.Enforcer
	if policyPath != "" {
		enforcer, err = casbin.NewEnforcer(m, fileadapter.NewAdapter(policyPath))
	} else {
		enforcer, err = casbin.NewEnforcer(m, stringadapter.NewAdapter(defaultPolicy))
	}
	if err != nil {
		return nil, fmt.Errorf("authz: load policy: %w", err)
	}

	return &Authorizer{enforcer: enforcer, mode: mode, logger: logger}, nil
}

func SubjectFromRole(role string) string {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		role = "anonymous"
	}
	return "role:" + role
}

// Authorize returns nil when actor may perform action on object. In shadow
// mode a denial is logged and allowed.
func (a *Authorizer) Authorize(ctx context.Context, actor model.Identity, object string, action string) error {
	if a.mode == ModeDisabled {
		return nil
	}

	subject := SubjectFromRole(actor.Role)
	ok, err := a.enforcer.Enforce(subject, object, action)
	if err != nil {
		return fmt.Errorf("authz: enforce %s %s: %w", object, action, err)
	}
	if ok {
		return nil
	}

	if a.mode == ModeShadow {
		a.logger.WarnContext(ctx, "authz shadow deny",
			"subject", subject, "object", object, "action", action, "user_id", actor.ID)
		return nil
	}
	return fmt.Errorf("%s may not %s %s: %w", subject, action, object, model.ErrForbidden)
}

// AllowAll is a Checker for deployments that authorize upstream.
type AllowAll struct{}

func (AllowAll) Authorize(context.Context, model.Identity, string, string) error { return nil }
