// Package demo holds example plugins served by dash.
package demo

// HelloWorld has a single string property that a frontend shows in a text
// box.  It can be changed by the user.
type HelloWorld struct {
	// Message is shown to the user.
	Message string `dash:"name=message"`
}

func NewHelloWorld() *HelloWorld {
	return &HelloWorld{Message: "Hello! I am a plugin."}
}
