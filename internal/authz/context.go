package authz

import "context"

type subjectContextKey struct{}

// ContextWithSubject stores the resolved subject snapshot in context.
func ContextWithSubject(ctx context.Context, subject *Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey{}, subject)
}

// SubjectFromContext extracts the subject stored by the guard, or nil.
func SubjectFromContext(ctx context.Context) *Subject {
	subject, _ := ctx.Value(subjectContextKey{}).(*Subject)
	return subject
}
