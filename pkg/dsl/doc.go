// Package dsl provides a fluent builder for declaring schemas in Go code,
// as an alternative to assembling domain.Command and domain.Trait values by
// hand or loading them from YAML.
//
// Example:
//
//	ix, err := dsl.New().
//		Command("create_user").
//		Arg("name", "anon").
//		Produces("user", "user").
//		Echo("user").
//		Trait("pending", "user").Via("create_user", nil).
//		Build()
package dsl
