package ebay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pawnshop-service/internal/models"
	"pawnshop-service/internal/pricing"
	"pawnshop-service/internal/provider"
	"pawnshop-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	providerName = "ebay"

	DefaultBaseURL = "https://svcs.ebay.com/services/search/FindingService/v1"
	entriesPerPage = "100"
	maxErrorBody   = 4 << 10
)

// Config holds the marketplace client settings
type Config struct {
	AppID   string
	BaseURL string
	Timeout time.Duration
}

// Client looks up completed sales on the Finding API. Without an app id
// it answers from the Simulator instead.
type Client struct {
	cfg       Config
	http      *http.Client
	simulator *Simulator
	logger    *zap.Logger
}

// NewClient creates a new pricing client
func NewClient(cfg Config, simulator *Simulator) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if simulator == nil {
		simulator = NewSimulator(0)
	}

	return &Client{
		cfg:       cfg,
		http:      &http.Client{Timeout: cfg.Timeout},
		simulator: simulator,
		logger:    util.GetLogger(),
	}
}

// Live reports whether lookups hit the real marketplace
func (c *Client) Live() bool {
	return c.cfg.AppID != ""
}

// Price returns comparable sales for query, filtered by category when it maps to one
func (c *Client) Price(ctx context.Context, query string, category models.Category) (models.PricingResult, error) {
	ctx, span := util.StartSpan(ctx, "EbayClient.Price",
		attribute.String("query", query),
		attribute.String("category", string(category)),
	)
	defer span.End()

	if !c.Live() {
		c.logger.Debug("No marketplace credential, simulating price", zap.String("query", query))
		return c.simulator.Price(query), nil
	}

	start := time.Now()
	defer func() {
		util.ProviderCallLatency.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
	}()

	result, err := c.findCompleted(ctx, query, category)
	if err != nil {
		util.ProviderErrorsTotal.WithLabelValues(providerName, provider.KindLabel(err)).Inc()
		util.RecordError(span, err)
		return models.PricingResult{}, err
	}

	c.logger.Debug("Marketplace pricing received",
		zap.String("query", query),
		zap.Int("count", result.Count))
	return result, nil
}

func (c *Client) findCompleted(ctx context.Context, query string, category models.Category) (models.PricingResult, error) {
	params := url.Values{}
	params.Set("OPERATION-NAME", "findCompletedItems")
	params.Set("SERVICE-VERSION", "1.0.0")
	params.Set("SECURITY-APPNAME", c.cfg.AppID)
	params.Set("RESPONSE-DATA-FORMAT", "JSON")
	params.Set("REST-PAYLOAD", "")
	params.Set("keywords", query)
	params.Set("paginationInput.entriesPerPage", entriesPerPage)
	params.Set("sortOrder", "EndTimeSoonest")
	params.Set("itemFilter(0).name", "SoldItemsOnly")
	params.Set("itemFilter(0).value", "true")
	if id, ok := CategoryID(category); ok {
		params.Set("categoryId", id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return models.PricingResult{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.PricingResult{}, provider.NewError(providerName, provider.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return models.PricingResult{}, provider.FromStatus(providerName, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.PricingResult{}, provider.NewError(providerName, provider.ErrTransport, err)
	}

	sales, err := ParseCompletedItems(body, time.Now())
	if err != nil {
		return models.PricingResult{}, err
	}
	return pricing.Aggregate(sales), nil
}

type findingResponse struct {
	FindCompletedItemsResponse []struct {
		SearchResult []struct {
			Item []findingItem `json:"item"`
		} `json:"searchResult"`
	} `json:"findCompletedItemsResponse"`
}

type findingItem struct {
	ItemID        []string `json:"itemId"`
	Title         []string `json:"title"`
	ViewItemURL   []string `json:"viewItemURL"`
	SellingStatus []struct {
		ConvertedCurrentPrice []struct {
			Value string `json:"__value__"`
		} `json:"convertedCurrentPrice"`
	} `json:"sellingStatus"`
	ListingInfo []struct {
		EndTime []string `json:"endTime"`
	} `json:"listingInfo"`
	Condition []struct {
		ConditionDisplayName []string `json:"conditionDisplayName"`
	} `json:"condition"`
}

// ParseCompletedItems decodes a Finding API response into sales. Items
// without a title or a numeric price are skipped; a missing end time
// counts as now.
func ParseCompletedItems(body []byte, now time.Time) ([]models.SaleObservation, error) {
	var resp findingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, provider.NewError(providerName, provider.ErrMalformedResponse, err)
	}
	if len(resp.FindCompletedItemsResponse) == 0 {
		return nil, provider.NewError(providerName, provider.ErrMalformedResponse,
			errors.New("missing findCompletedItemsResponse"))
	}

	root := resp.FindCompletedItemsResponse[0]
	if len(root.SearchResult) == 0 {
		return nil, nil
	}

	var sales []models.SaleObservation
	for _, it := range root.SearchResult[0].Item {
		title := first(it.Title)
		if title == "" || len(it.SellingStatus) == 0 || len(it.SellingStatus[0].ConvertedCurrentPrice) == 0 {
			continue
		}
		price, err := decimal.NewFromString(it.SellingStatus[0].ConvertedCurrentPrice[0].Value)
		if err != nil {
			continue
		}

		saleDate := now
		if len(it.ListingInfo) > 0 {
			if t, err := time.Parse(time.RFC3339, first(it.ListingInfo[0].EndTime)); err == nil {
				saleDate = t
			}
		}

		sale := models.SaleObservation{
			ID:       first(it.ItemID),
			Title:    title,
			Price:    price.InexactFloat64(),
			SaleDate: saleDate,
			URL:      first(it.ViewItemURL),
		}
		if len(it.Condition) > 0 {
			sale.Condition = first(it.Condition[0].ConditionDisplayName)
		}
		sales = append(sales, sale)
	}
	return sales, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
