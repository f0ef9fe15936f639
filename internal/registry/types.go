package registry

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Pair - one (name, value) item of a SOAP answer.
type Pair struct {
	Name  string
	Value string
}

// DumpInfo - getLastDumpDateEx answer. Dates are epoch milliseconds.
type DumpInfo struct {
	LastDumpDate         int64
	LastDumpDateUrgently int64
	WebServiceVersion    string
	DumpFormatVersion    string
	DocVersion           string
}

// SendResult - sendRequest answer.
type SendResult struct {
	Result  bool
	Comment string
	Code    string
}

// Result codes of getResult.
const (
	ResultInProgress = 0
	ResultReady      = 1
)

// Result - getResult answer. Archive is set only for a ready dump.
type Result struct {
	Result            bool
	Comment           string
	ResultCode        int
	Archive           []byte
	DumpFormatVersion string
	OperatorName      string
	INN               string
}

// pairsToMap - normalize the answer, the last duplicate wins.
func pairsToMap(pairs []Pair) map[string]string {
	m := make(map[string]string, len(pairs))

	for _, p := range pairs {
		m[p.Name] = p.Value
	}

	return m
}

func newDumpInfo(m map[string]string) (*DumpInfo, error) {
	var (
		info DumpInfo
		err  error
	)

	if info.LastDumpDate, err = requireInt(m, "lastDumpDate"); err != nil {
		return nil, err
	}

	if info.LastDumpDateUrgently, err = requireInt(m, "lastDumpDateUrgently"); err != nil {
		return nil, err
	}

	if info.WebServiceVersion, err = requireString(m, "webServiceVersion"); err != nil {
		return nil, err
	}

	if info.DumpFormatVersion, err = requireString(m, "dumpFormatVersion"); err != nil {
		return nil, err
	}

	if info.DocVersion, err = requireString(m, "docVersion"); err != nil {
		return nil, err
	}

	return &info, nil
}

func newSendResult(m map[string]string) (*SendResult, error) {
	result, err := requireBool(m, "result")
	if err != nil {
		return nil, err
	}

	res := &SendResult{Result: result, Comment: m["resultComment"], Code: m["code"]}

	if !res.Result {
		return nil, fmt.Errorf("%w: request rejected: %s", ErrTransport, res.Comment)
	}

	if res.Code == "" {
		return nil, fmt.Errorf("%w: unexpected answer: missing code", ErrTransport)
	}

	return res, nil
}

func newResult(m map[string]string) (*Result, error) {
	result, err := requireBool(m, "result")
	if err != nil {
		return nil, err
	}

	code, err := requireInt(m, "resultCode")
	if err != nil {
		return nil, err
	}

	res := &Result{
		Result:            result,
		Comment:           m["resultComment"],
		ResultCode:        int(code),
		DumpFormatVersion: m["dumpFormatVersion"],
		OperatorName:      m["operatorName"],
		INN:               m["inn"],
	}

	if res.Result && res.ResultCode == ResultReady {
		raw, ok := m["registerZipArchive"]
		if !ok || raw == "" {
			return nil, fmt.Errorf("%w: unexpected answer: missing registerZipArchive", ErrTransport)
		}

		// long base64 answers are line-wrapped
		raw = strings.Map(func(r rune) rune {
			switch r {
			case '\r', '\n', '\t', ' ':
				return -1
			}

			return r
		}, raw)

		res.Archive, err = base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: archive base64: %w", ErrTransport, err)
		}
	}

	return res, nil
}

func requireString(m map[string]string, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: unexpected answer: missing %s", ErrTransport, key)
	}

	return v, nil
}

func requireInt(m map[string]string, key string) (int64, error) {
	v, err := requireString(m, key)
	if err != nil {
		return 0, err
	}

	x, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected answer: %s: %w", ErrTransport, key, err)
	}

	return x, nil
}

func requireBool(m map[string]string, key string) (bool, error) {
	v, err := requireString(m, key)
	if err != nil {
		return false, err
	}

	x, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: unexpected answer: %s: %w", ErrTransport, key, err)
	}

	return x, nil
}
