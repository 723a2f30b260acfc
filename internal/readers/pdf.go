package readers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/driftlynx/answerengine/internal/engine"
)

// PDF downloads a PDF to memory and extracts its plain text, used for the
// URLs the pipeline classifies as PDF by their path (ending in .pdf or
// containing /pdf/); the response content-type is not consulted.
type PDF struct {
	Client          *http.Client
	MaxContentChars int
}

func NewPDF(client *http.Client, maxContentChars int) *PDF {
	if maxContentChars <= 0 {
		maxContentChars = 20000
	}
	return &PDF{Client: client, MaxContentChars: maxContentChars}
}

func (p *PDF) Name() string { return "pdf" }

func (p *PDF) Read(ctx context.Context, rawURL string) (engine.FetchedPage, error) {
	if cached, ok := cacheLookup(ctx, p.Name(), rawURL); ok {
		return cached, nil
	}
	engine.IncrFetchRequest()
	page := engine.FetchedPage{URL: rawURL, ContentType: "pdf", ReaderUsed: p.Name(), FetchedAt: time.Now()}

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		engine.IncrFetchError()
		return page, fmt.Errorf("pdf: build request: %w", err)
	}
	req.Header.Set("User-Agent", engine.RandomUserAgent())

	resp, err := client.Do(req)
	if err != nil {
		engine.IncrFetchError()
		return page, fmt.Errorf("pdf: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		engine.IncrFetchError()
		err := fmt.Errorf("pdf: fetch %s: status %d", rawURL, resp.StatusCode)
		return page, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		engine.IncrFetchError()
		return page, fmt.Errorf("pdf: read body: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		engine.IncrFetchError()
		return page, fmt.Errorf("pdf: parse: %w", err)
	}

	var sb strings.Builder
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		pg := reader.Page(i)
		if pg.V.IsNull() {
			continue
		}
		text, terr := pg.GetPlainText(nil)
		if terr != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
		if sb.Len() >= p.MaxContentChars {
			break
		}
	}

	page.Content = truncate(strings.TrimSpace(sb.String()), p.MaxContentChars)
	cacheStore(ctx, p.Name(), rawURL, page.Title, page.Content)
	return page, nil
}
