// Package models holds the persistent entities and the form payloads bound
// from HTML requests.
package models

// All lists the models in migration order.
func All() []any {
	return []any{&User{}, &Group{}, &Post{}, &Comment{}, &Follow{}}
}
