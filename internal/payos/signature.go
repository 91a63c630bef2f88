package payos

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

func sign(checksumKey string, data string) string {
	mac := hmac.New(sha256.New, []byte(checksumKey))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentRequestSignatureData builds the canonical string signed on payment link creation.
func PaymentRequestSignatureData(amount int64, cancelURL string, description string, orderCode int64, returnURL string) string {
	return "amount=" + strconv.FormatInt(amount, 10) +
		"&cancelUrl=" + cancelURL +
		"&description=" + description +
		"&orderCode=" + strconv.FormatInt(orderCode, 10) +
		"&returnUrl=" + returnURL
}

// SignWebhookData signs a webhook data object: keys sorted, joined as key=value with '&'.
func SignWebhookData(checksumKey string, data json.RawMessage) (string, error) {
	canonical, err := canonicalData(data)
	if err != nil {
		return "", err
	}
	return sign(checksumKey, canonical), nil
}

func canonicalData(data json.RawMessage) (string, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return "", fmt.Errorf("decode webhook data: %w", err)
	}
	if fields == nil {
		return "", fmt.Errorf("decode webhook data: not an object")
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value, err := canonicalValue(fields[key])
		if err != nil {
			return "", err
		}
		parts = append(parts, key+"="+value)
	}
	return strings.Join(parts, "&"), nil
}

func canonicalValue(value any) (string, error) {
	switch typed := value.(type) {
	case nil:
		return "", nil
	case string:
		if typed == "null" || typed == "undefined" {
			return "", nil
		}
		return typed, nil
	case json.Number:
		return typed.String(), nil
	case bool:
		return strconv.FormatBool(typed), nil
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return "", fmt.Errorf("encode webhook value: %w", err)
		}
		return string(encoded), nil
	}
}
