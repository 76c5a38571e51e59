// Package binance fetches OHLCV candles and live prices from the Binance
// spot REST API. It is the production model.MarketData implementation.
package binance

import (
	"context"
	"fmt"
	"log"
	"strconv"

	gobinance "github.com/adshao/go-binance/v2"

	"papertraderv1/internal/model"
)

// Config configures the Binance client. Public market data needs no keys;
// they are accepted for rate-limit headroom.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// Client wraps the go-binance spot client behind the MarketData port.
type Client struct {
	spot *gobinance.Client
}

// New creates a Binance market data client.
func New(cfg Config) *Client {
	spot := gobinance.NewClient(cfg.APIKey, cfg.APISecret)
	if cfg.Testnet {
		gobinance.UseTestnet = true
	}
	log.Printf("[binance] client ready (testnet=%v)", cfg.Testnet)
	return &Client{spot: spot}
}

// FetchCandles returns up to limit most-recent candles, oldest first.
func (c *Client) FetchCandles(ctx context.Context, symbol, interval string, limit int) (model.Series, error) {
	klines, err := c.spot.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s/%s: %w", symbol, interval, err)
	}

	series := make(model.Series, 0, len(klines))
	for _, k := range klines {
		candle, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("binance kline %s at %d: %w", symbol, k.OpenTime, err)
		}
		series = append(series, candle)
	}
	return series, nil
}

// FetchPrice returns the latest traded price for the symbol.
func (c *Client) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.spot.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance price %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("binance price %s: empty response", symbol)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("binance price %s: parse %q: %w", symbol, prices[0].Price, err)
	}
	return price, nil
}

// parseKline converts one REST kline (string-encoded prices) to a candle.
func parseKline(k *gobinance.Kline) (model.Candle, error) {
	var c model.Candle
	var err error
	c.Time = k.OpenTime / 1000 // binance reports milliseconds

	if c.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
		return c, fmt.Errorf("open: %w", err)
	}
	if c.High, err = strconv.ParseFloat(k.High, 64); err != nil {
		return c, fmt.Errorf("high: %w", err)
	}
	if c.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
		return c, fmt.Errorf("low: %w", err)
	}
	if c.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
		return c, fmt.Errorf("close: %w", err)
	}
	if c.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
		return c, fmt.Errorf("volume: %w", err)
	}
	return c, nil
}
