// Package registry talks to the registry SOAP service (OperatorRequest).
package registry

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/usher2/u2dumpsync/internal/logger"
)

// Namespace - OperatorRequest service namespace.
const Namespace = "http://vigruzki.rkn.gov.ru/OperatorRequest/"

const (
	opGetLastDumpDateEx = "getLastDumpDateEx"
	opGetLastDumpDate   = "getLastDumpDate"
	opSendRequest       = "sendRequest"
	opGetResult         = "getResult"
)

// Errors
var (
	// ErrTransport - the remote call failed: network, HTTP, SOAP fault or unexpected answer.
	ErrTransport = errors.New("registry transport")
	// ErrConfig - local prerequisites of a call are missing.
	ErrConfig = errors.New("registry config")
)

// Client - OperatorRequest SOAP client.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient - client with a deadline for every call.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetLastDumpDateEx - timestamps (ms) of the last dumps and service versions.
func (c *Client) GetLastDumpDateEx(ctx context.Context) (*DumpInfo, error) {
	pairs, err := c.call(ctx, opGetLastDumpDateEx, nil)
	if err != nil {
		return nil, err
	}

	return newDumpInfo(pairsToMap(pairs))
}

// GetLastDumpDate - timestamp (ms) of the last regular dump.
func (c *Client) GetLastDumpDate(ctx context.Context) (int64, error) {
	pairs, err := c.call(ctx, opGetLastDumpDate, nil)
	if err != nil {
		return 0, err
	}

	return requireInt(pairsToMap(pairs), "lastDumpDate")
}

// SendRequest - submit the signed request, the answer carries a code for GetResult.
func (c *Client) SendRequest(ctx context.Context, request, signature []byte, version string) (*SendResult, error) {
	pairs, err := c.call(ctx, opSendRequest, []Pair{
		{Name: "requestFile", Value: base64.StdEncoding.EncodeToString(request)},
		{Name: "signatureFile", Value: base64.StdEncoding.EncodeToString(signature)},
		{Name: "dumpFormatVersion", Value: version},
	})
	if err != nil {
		return nil, err
	}

	return newSendResult(pairsToMap(pairs))
}

// GetResult - state of the request, the archive when it is ready.
func (c *Client) GetResult(ctx context.Context, code string) (*Result, error) {
	pairs, err := c.call(ctx, opGetResult, []Pair{{Name: "code", Value: code}})
	if err != nil {
		return nil, err
	}

	return newResult(pairsToMap(pairs))
}

// call - one SOAP round trip, the answer element children are returned as pairs.
func (c *Client) call(ctx context.Context, op string, params []Pair) ([]Pair, error) {
	body := buildEnvelope(op, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: construct request: %w", ErrTransport, err)
	}

	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", fmt.Sprintf("%q", Namespace+op))

	logger.Debug.Printf("SOAP call: %s\n", op)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
	}

	defer resp.Body.Close()

	pairs, fault, err := decodeEnvelope(resp.Body)

	switch {
	case fault != nil:
		return nil, fmt.Errorf("%w: %s: soap fault: %s: %s", ErrTransport, op, fault.Code, fault.String)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s: not 200 HTTP code: %d", ErrTransport, op, resp.StatusCode)
	case err != nil:
		return nil, fmt.Errorf("%w: %s: decode: %w", ErrTransport, op, err)
	}

	return pairs, nil
}

func buildEnvelope(op string, params []Pair) []byte {
	var b bytes.Buffer

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ope="`)
	b.WriteString(Namespace)
	b.WriteString(`"><soapenv:Body><ope:`)
	b.WriteString(op)
	b.WriteString(`>`)

	for _, p := range params {
		b.WriteString("<" + p.Name + ">")
		_ = xml.EscapeText(&b, []byte(p.Value))
		b.WriteString("</" + p.Name + ">")
	}

	b.WriteString(`</ope:`)
	b.WriteString(op)
	b.WriteString(`></soapenv:Body></soapenv:Envelope>`)

	return b.Bytes()
}

type soapNode struct {
	XMLName xml.Name
	Content string     `xml:",chardata"`
	Nodes   []soapNode `xml:",any"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type soapEnvelope struct {
	Body struct {
		Fault *soapFault `xml:"Fault"`
		Nodes []soapNode `xml:",any"`
	} `xml:"Body"`
}

func decodeEnvelope(r io.Reader) ([]Pair, *soapFault, error) {
	env := soapEnvelope{}

	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	if err := decoder.Decode(&env); err != nil {
		return nil, nil, err
	}

	if env.Body.Fault != nil {
		return nil, env.Body.Fault, nil
	}

	if len(env.Body.Nodes) == 0 {
		return nil, nil, fmt.Errorf("empty body")
	}

	answer := env.Body.Nodes[0]
	pairs := make([]Pair, 0, len(answer.Nodes))

	for _, n := range answer.Nodes {
		pairs = append(pairs, Pair{Name: n.XMLName.Local, Value: strings.TrimSpace(n.Content)})
	}

	return pairs, nil, nil
}
