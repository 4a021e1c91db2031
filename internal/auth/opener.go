package auth

import "github.com/pkg/browser"

// Opener shows the consent URL to the user.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(url string) error

// Open calls f(url).
func (f OpenerFunc) Open(url string) error {
	return f(url)
}

// BrowserOpener opens URLs in the system's default browser.
func BrowserOpener() Opener {
	return OpenerFunc(browser.OpenURL)
}

// PrintOpener never launches a browser; it hands the URL to print, for
// headless machines.
func PrintOpener(print func(url string)) Opener {
	return OpenerFunc(func(url string) error {
		print(url)
		return nil
	})
}
