package rates

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CBRClient fetches the daily rouble rates published by the Central Bank
// of Russia.
type CBRClient struct {
	url    string
	client *http.Client
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewCBRClient(url string, log logrus.FieldLogger) *CBRClient {
	return &CBRClient{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
		now: time.Now,
	}
}

func (c *CBRClient) buildSOAPRequest(on time.Time) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
		<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
			<soap12:Body>
				<GetCursOnDateXML xmlns="http://web.cbr.ru/">
					<On_date>%s</On_date>
				</GetCursOnDateXML>
			</soap12:Body>
		</soap12:Envelope>`, on.Format("2006-01-02"))
}

func (c *CBRClient) sendRequest(ctx context.Context, soapRequest string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBufferString(soapRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://web.cbr.ru/GetCursOnDateXML")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debugf("CBR XML response: %d bytes", len(body))
	return body, nil
}

// parseXMLResponse turns ValuteCursOnDate entries into rouble prices per
// single unit. Vcurs is quoted for Vnom units (e.g. 100 JPY).
func parseXMLResponse(rawBody []byte) (Table, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return Table{}, fmt.Errorf("failed to parse XML: %w", err)
	}

	entries := doc.FindElements("//ValuteCursOnDate")
	if len(entries) == 0 {
		return Table{}, fmt.Errorf("no rate data found in XML")
	}

	table := Table{Anchor: "RUB", Prices: make(map[string]decimal.Decimal, len(entries))}
	for _, e := range entries {
		code := childText(e, "VchCode")
		curs := childText(e, "Vcurs")
		if code == "" || curs == "" {
			continue
		}
		rate, err := decimal.NewFromString(curs)
		if err != nil {
			return Table{}, fmt.Errorf("failed to parse rate for %s: %w", code, err)
		}
		nominal := decimal.NewFromInt(1)
		if nom := childText(e, "Vnom"); nom != "" {
			if nominal, err = decimal.NewFromString(nom); err != nil || !nominal.IsPositive() {
				return Table{}, fmt.Errorf("invalid nominal for %s: %q", code, nom)
			}
		}
		table.Prices[strings.ToUpper(code)] = rate.DivRound(nominal, ratePrecision)
	}
	return table, nil
}

func childText(e *etree.Element, tag string) string {
	child := e.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

// Table retrieves today's rates.
func (c *CBRClient) Table(ctx context.Context) (Table, error) {
	body, err := c.sendRequest(ctx, c.buildSOAPRequest(c.now()))
	if err != nil {
		return Table{}, err
	}
	table, err := parseXMLResponse(body)
	if err != nil {
		return Table{}, err
	}
	c.log.WithField("currencies", len(table.Prices)).Info("Retrieved CBR exchange rates")
	return table, nil
}

// Rate implements Provider without caching.
func (c *CBRClient) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	table, err := c.Table(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return table.Cross(base, quote)
}
