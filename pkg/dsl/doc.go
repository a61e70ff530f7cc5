/*
Package dsl provides a fluent builder for constructing roboflow scenarios in Go.

It is an alternative to authoring project XML by hand, useful for generated
scenarios, unit tests and IDE type-checking.

Example usage:

	b := dsl.New("check inbox")

	b.Add(0, "launch").
		Launch("com.example.mail").
		Wait(1500).
		Go(1, 2)

	b.Add(1, "inbox").
		When(dsl.XPath(`//node[@resource-id="app:id/title"]/@text`).Eq(dsl.Const("Inbox")))

	b.Add(2, "login").
		Priority(50).
		TapText("Sign in")

	sc, err := b.Build()
*/
package dsl
