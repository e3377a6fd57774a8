package browser

import (
	"context"
	"sync"
	"time"
)

// Fake is a scripted Driver for tests. Visibility, text, and HTML snapshots
// are plain maps keyed by locator; hooks let a test mutate page state in
// response to clicks and navigations the way a real portal would.
type Fake struct {
	mu sync.Mutex

	CurrentURL string
	Visible    map[string]bool
	Texts      map[string]string
	HTMLs      map[string]string

	ClickErr map[string]error
	FillErr  map[string]error
	NavErr   error

	Clicked     []string
	CoordClicks [][2]int
	Filled      map[string]string
	Pressed     []string
	Typed       []string
	Navigated   []string

	ScreenshotPNG []byte
	Closed        bool

	// NavigateHook runs after every successful Navigate.
	NavigateHook func(url string)
	// ClickHook runs after every successful Click.
	ClickHook func(locator string)
}

// NewFake returns an empty fake with all maps initialized.
func NewFake() *Fake {
	return &Fake{
		Visible:  map[string]bool{},
		Texts:    map[string]string{},
		HTMLs:    map[string]string{},
		ClickErr: map[string]error{},
		FillErr:  map[string]error{},
		Filled:   map[string]string{},
	}
}

// Show marks locators visible.
func (f *Fake) Show(locators ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range locators {
		f.Visible[l] = true
	}
}

// Hide marks locators invisible.
func (f *Fake) Hide(locators ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range locators {
		delete(f.Visible, l)
	}
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	if f.NavErr != nil {
		err := f.NavErr
		f.mu.Unlock()
		return err
	}
	f.CurrentURL = url
	f.Navigated = append(f.Navigated, url)
	hook := f.NavigateHook
	f.mu.Unlock()
	if hook != nil {
		hook(url)
	}
	return nil
}

func (f *Fake) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CurrentURL
}

func (f *Fake) WaitVisible(ctx context.Context, locator string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Visible[locator] {
		return nil
	}
	return ErrNotVisible
}

func (f *Fake) Click(ctx context.Context, locator string, timeout time.Duration) error {
	if err := f.WaitVisible(ctx, locator, timeout); err != nil {
		return err
	}
	f.mu.Lock()
	if err := f.ClickErr[locator]; err != nil {
		f.mu.Unlock()
		return err
	}
	f.Clicked = append(f.Clicked, locator)
	hook := f.ClickHook
	f.mu.Unlock()
	if hook != nil {
		hook(locator)
	}
	return nil
}

func (f *Fake) ClickAt(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CoordClicks = append(f.CoordClicks, [2]int{x, y})
	return nil
}

func (f *Fake) Fill(ctx context.Context, locator, value string, timeout time.Duration) error {
	if err := f.WaitVisible(ctx, locator, timeout); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FillErr[locator]; err != nil {
		return err
	}
	f.Filled[locator] = value
	return nil
}

func (f *Fake) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pressed = append(f.Pressed, key)
	return nil
}

func (f *Fake) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Typed = append(f.Typed, text)
	return nil
}

func (f *Fake) Text(ctx context.Context, locator string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if text, ok := f.Texts[locator]; ok {
		return text, nil
	}
	return "", ErrNotFound
}

func (f *Fake) HTML(ctx context.Context, locator string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if html, ok := f.HTMLs[locator]; ok {
		return html, nil
	}
	return "", ErrNotFound
}

func (f *Fake) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ScreenshotPNG, nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// ClickCount reports how many times locator was clicked.
func (f *Fake) ClickCount(locator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.Clicked {
		if l == locator {
			n++
		}
	}
	return n
}
