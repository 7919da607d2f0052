package repository

import "org-lifecycle/internal/model"

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func nullableID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func identityFrom(id *int64, name *string, email *string) model.Identity {
	return model.Identity{ID: deref(id), Name: deref(name), Email: deref(email)}
}

// actorFrom returns nil until a reviewer has been recorded.
func actorFrom(id *int64, name *string) *model.Identity {
	if id == nil && name == nil {
		return nil
	}
	return &model.Identity{ID: deref(id), Name: deref(name)}
}
