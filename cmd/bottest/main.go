// Command bottest opens bot.sannysoft.com in a browser using the same
// stealth options as the scraper, allowing you to audit the browser fingerprint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/tweetscope/internal/browser"
	"github.com/ibeckermayer/tweetscope/internal/logging"
)

func main() {
	proxy := flag.String("proxy", "", "proxy server passed to Chrome")
	url := flag.String("url", "https://bot.sannysoft.com", "page to open")
	flag.Parse()

	logging.Setup("info")
	slog.Info("[bottest] Opening page with stealth browser options", "url", *url, "proxy", *proxy)

	opts := browser.Options(false, *proxy) // non-headless so you can see it

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.Navigate(*url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
	)
	if err != nil {
		slog.Error("[bottest] Failed to navigate", "error", err)
		os.Exit(1)
	}

	fmt.Println("Press Enter to close the browser...")
	fmt.Scanln()

	slog.Info("[bottest] Done")
}
