package gsa

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/travelcomp/offer-service/internal/config"
	"github.com/travelcomp/offer-service/internal/models"
)

// standardRateCity marks the CONUS fallback entry in the per-diem feed,
// used for localities without their own listed rate.
const standardRateCity = "Standard Rate"

// Client handles integration with the GSA per-diem rate feed
type Client struct {
	url    string
	apiKey string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new GSA client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url:    cfg.GSAFeedURL,
		apiKey: cfg.GSAAPIKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// sendRequest fetches the per-diem XML document for a state and fiscal year
func (c *Client) sendRequest(state string, fiscalYear int) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rates/state/%s/year/%d?%s",
		c.url, url.PathEscape(state), fiscalYear, url.Values{"format": {"xml"}}.Encode())

	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	// Log the raw XML response for debugging
	c.log.Debugf("GSA XML response: %s", string(body))

	return body, nil
}

// parseXMLResponse extracts the lodging and meals rates for a city from the
// feed. When the city has no listed rate, the standard CONUS entry applies.
func parseXMLResponse(rawBody []byte, city string) (lodging, meals decimal.Decimal, err error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("failed to parse XML: %v", err)
	}

	localities := doc.FindElements("//PerDiemRates/Locality")
	if len(localities) == 0 {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("no per-diem data found in XML")
	}

	var match, standard *etree.Element
	for _, el := range localities {
		switch el.SelectAttrValue("city", "") {
		case city:
			match = el
		case standardRateCity:
			standard = el
		}
	}
	if match == nil {
		match = standard
	}
	if match == nil {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("no per-diem entry for city %q and no standard rate", city)
	}

	lodging, err = parseRateElement(match, "Lodging")
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	meals, err = parseRateElement(match, "Meals")
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	return lodging, meals, nil
}

func parseRateElement(locality *etree.Element, name string) (decimal.Decimal, error) {
	el := locality.SelectElement(name)
	if el == nil {
		return decimal.Decimal{}, fmt.Errorf("%s element not found in XML", name)
	}
	rate, err := decimal.NewFromString(el.Text())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse %s rate: %v", name, err)
	}
	if rate.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative %s rate in feed: %s", name, rate)
	}
	return rate, nil
}

// FetchRate retrieves the current per-diem lodging and meals ceilings for a
// locality from the GSA feed
func (c *Client) FetchRate(state, city string, fiscalYear int) (*models.PerDiemRate, error) {
	body, err := c.sendRequest(state, fiscalYear)
	if err != nil {
		return nil, err
	}

	lodging, meals, err := parseXMLResponse(body, city)
	if err != nil {
		return nil, err
	}

	c.log.Infof("Retrieved per-diem rates for %s, %s: lodging %s, meals %s",
		city, state, lodging, meals)
	return &models.PerDiemRate{
		State:        state,
		City:         city,
		DailyLodging: lodging,
		DailyMeals:   meals,
		FiscalYear:   fiscalYear,
		FetchedAt:    time.Now(),
	}, nil
}
