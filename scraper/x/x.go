package x

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"x-scraper/config"
	"x-scraper/models"
	"x-scraper/utils"
)

const (
	loginURL  = "https://x.com/i/flow/login"
	searchURL = "https://x.com/search"

	// stallLimit is how many scroll rounds without new unique posts we
	// tolerate before giving up on a feed.
	stallLimit = 6
)

// Collector drives a headless browser session against X and captures feed
// HTML snapshots for the pipeline. It is the external collaborator of the
// extraction core: the pipeline never sees the browser, only RawSnapshots.
type Collector struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig

	browserCtx context.Context
	cancels    []context.CancelFunc
}

// New creates a Collector. Start must be called before Collect.
func New(cfg *config.Config, logger *utils.Logger) *Collector {
	return &Collector{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Start launches the browser and attempts login when credentials are
// configured. Login is best-effort: a guest session still serves search
// results.
func (c *Collector) Start() error {
	chromeBin := findChromeBinary(c.cfg.ChromeBin)
	c.logger.Info("[x] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	c.cancels = append(c.cancels, cancelAlloc)

	// One browser context for the whole run so the login session carries
	// across hashtags.
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	c.cancels = append(c.cancels, cancelBrowser)
	c.browserCtx = browserCtx

	if err := chromedp.Run(browserCtx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}

	if c.cfg.XUsername != "" && c.cfg.XPassword != "" {
		if err := c.login(); err != nil {
			c.logger.Warn("[x] Login failed, proceeding as guest: %v", err)
		}
	} else {
		c.logger.Info("[x] No credentials configured, proceeding as guest")
	}

	return nil
}

// Stop tears the browser session down.
func (c *Collector) Stop() {
	for i := len(c.cancels) - 1; i >= 0; i-- {
		c.cancels[i]()
	}
}

// login walks the two-step login flow: username, Next, password, Log in.
func (c *Collector) login() error {
	c.logger.Info("[x] Attempting login for %s", c.cfg.XUsername)

	return c.retry.Do("login", func() error {
		ctx, cancel := context.WithTimeout(c.browserCtx, 60*time.Second)
		defer cancel()

		return chromedp.Run(ctx,
			chromedp.Navigate(loginURL),
			chromedp.WaitVisible(`input[name="text"]`, chromedp.ByQuery),
			chromedp.SendKeys(`input[name="text"]`, c.cfg.XUsername+kb.Enter, chromedp.ByQuery),
			chromedp.Sleep(1500*time.Millisecond),
			chromedp.WaitVisible(`input[name="password"]`, chromedp.ByQuery),
			chromedp.SendKeys(`input[name="password"]`, c.cfg.XPassword+kb.Enter, chromedp.ByQuery),
			chromedp.Sleep(2*time.Second),
		)
	})
}

// Collect opens the Latest feed for the hashtag and captures one snapshot
// per scroll round until the unique-post target is reached, the feed stalls,
// or the scroll budget runs out. An empty snapshot slice with a non-nil
// error means the collaborator could not obtain any capture at all.
func (c *Collector) Collect(hashtag string) ([]models.RawSnapshot, error) {
	feedURL := searchURL + "?q=" + url.QueryEscape(hashtag) + "&src=typed_query&f=live"
	c.logger.Info("[x] Opening Latest feed for %s", hashtag)

	err := c.retry.Do("open-feed-"+hashtag, func() error {
		ctx, cancel := context.WithTimeout(c.browserCtx, 45*time.Second)
		defer cancel()

		return chromedp.Run(ctx,
			chromedp.Navigate(feedURL),
			chromedp.Sleep(3*time.Second),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("open feed for %s: %w", hashtag, err)
	}

	seen := utils.NewIDSet()
	pause := time.Duration(c.cfg.ScrollPauseMs) * time.Millisecond
	var snapshots []models.RawSnapshot
	stableRounds := 0
	lastCount := 0

	for scroll := 0; scroll < c.cfg.MaxScrolls; scroll++ {
		ids, err := c.visibleFingerprints()
		if err != nil {
			c.logger.Warn("[x] %s fingerprint scan failed on scroll %d: %v", hashtag, scroll+1, err)
		}
		for _, id := range ids {
			seen.Add(id)
		}

		html, err := c.captureFeedHTML()
		if err != nil {
			c.logger.Warn("[x] %s capture failed on scroll %d: %v", hashtag, scroll+1, err)
		} else if html != "" {
			snapshots = append(snapshots, models.RawSnapshot{
				Hashtag:    hashtag,
				HTML:       html,
				Seq:        len(snapshots),
				CapturedAt: time.Now(),
			})
		}

		count := seen.Size()
		c.logger.Debug("[x] %s scroll %d/%d — unique posts: %d",
			hashtag, scroll+1, c.cfg.MaxScrolls, count)

		if count >= c.cfg.TargetPerTag {
			c.logger.Info("[x] %s target reached: %d unique posts", hashtag, count)
			break
		}

		if count <= lastCount {
			stableRounds++
		} else {
			stableRounds = 0
		}
		lastCount = count

		if stableRounds >= stallLimit {
			c.logger.Warn("[x] %s feed stalled after %d rounds with %d unique posts",
				hashtag, stableRounds, count)
			break
		}

		if err := c.scrollFeed(); err != nil {
			c.logger.Warn("[x] %s scroll failed: %v", hashtag, err)
		}
		time.Sleep(pause)
	}

	if len(snapshots) == 0 {
		return nil, fmt.Errorf("no snapshots captured for %s", hashtag)
	}

	c.logger.Info("[x] %s collection done: %d snapshots, %d unique posts seen",
		hashtag, len(snapshots), seen.Size())
	return snapshots, nil
}

// visibleFingerprints returns a stable fingerprint per rendered post: the
// status id when a permalink is present, a content hash otherwise.
func (c *Collector) visibleFingerprints() ([]string, error) {
	ctx, cancel := context.WithTimeout(c.browserCtx, 15*time.Second)
	defer cancel()

	var ids []string
	err := chromedp.Run(ctx, chromedp.Evaluate(`
		(function() {
			var out = [];
			var posts = document.querySelectorAll('[data-testid="tweet"]');
			for (var i = 0; i < posts.length; i++) {
				var html = posts[i].outerHTML || '';
				var m = html.match(/\/status\/(\d+)/);
				if (m) {
					out.push(m[1]);
					continue;
				}
				var h = 0;
				for (var j = 0; j < html.length; j++) {
					h = ((h << 5) - h + html.charCodeAt(j)) | 0;
				}
				out.push('h' + h.toString(16));
			}
			return out;
		})()
	`, &ids))
	return ids, err
}

// captureFeedHTML grabs the timeline container's outerHTML, falling back to
// concatenating individual post elements into a wrapper when the container
// renders fewer posts than are on screen.
func (c *Collector) captureFeedHTML() (string, error) {
	ctx, cancel := context.WithTimeout(c.browserCtx, 20*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(ctx, chromedp.Evaluate(`
		(function() {
			var selectors = [
				'div[data-testid="primaryColumn"] div[data-testid="timeline"]',
				'div[role="feed"]',
				'div[aria-label*="Timeline"]'
			];
			var html = '';
			for (var i = 0; i < selectors.length; i++) {
				var el = document.querySelector(selectors[i]);
				if (el && el.outerHTML && el.outerHTML.length > 50) {
					html = el.outerHTML;
					break;
				}
			}

			var posts = document.querySelectorAll('[data-testid="tweet"]');
			var articles = html ? (html.match(/<article/g) || []).length : 0;
			if (!html || (posts.length > 0 && articles < Math.max(10, posts.length / 4))) {
				var parts = ['<div id="x-scraper-wrapper">'];
				for (var j = 0; j < posts.length; j++) {
					parts.push(posts[j].outerHTML || '');
				}
				parts.push('</div>');
				html = parts.join('\n');
			}

			return html;
		})()
	`, &html))
	return html, err
}

// scrollFeed scrolls to the last rendered post to trigger lazy loading.
func (c *Collector) scrollFeed() error {
	ctx, cancel := context.WithTimeout(c.browserCtx, 15*time.Second)
	defer cancel()

	return chromedp.Run(ctx, chromedp.Evaluate(`
		(function() {
			var posts = document.querySelectorAll('[data-testid="tweet"]');
			if (posts.length > 0) {
				posts[posts.length - 1].scrollIntoView(true);
			} else {
				window.scrollTo(0, document.body.scrollHeight);
			}
			return true;
		})()
	`, nil))
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
