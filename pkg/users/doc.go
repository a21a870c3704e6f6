// Package users persists application accounts and their profiles.
//
// The bridge looks users up by lowercased email and creates them lazily
// on first successful Hub login. Creation races are resolved by the
// database unique constraint: a duplicate insert surfaces as
// ErrEmailTaken and the caller retries the lookup.
//
//	store, err := users.NewPostgresStore(db)
//	user, err := store.GetByEmail(ctx, "Alice@Example.com") // lowercased internally
//	if errors.Is(err, users.ErrNotFound) {
//		user, err = store.Create(ctx, users.NewUser{Email: "alice@example.com", Name: "Alice"})
//	}
package users
