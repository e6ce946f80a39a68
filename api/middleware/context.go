package middleware

import "context"

type contextKey string

const (
	ctxStaffID    contextKey = "staff_id"
	ctxStaffName  contextKey = "staff_name"
	ctxStaffEmail contextKey = "staff_email"
	ctxRole       contextKey = "staff_role"
)

func StaffIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxStaffID)
}

func StaffNameFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxStaffName)
}

func StaffEmailFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxStaffEmail)
}

func RoleFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRole)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithStaff injects the staff identity into the context; used by tests to
// bypass token minting.
func WithStaff(ctx context.Context, id, name, email, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxStaffID, id)
	ctx = context.WithValue(ctx, ctxStaffName, name)
	ctx = context.WithValue(ctx, ctxStaffEmail, email)
	return context.WithValue(ctx, ctxRole, role)
}
