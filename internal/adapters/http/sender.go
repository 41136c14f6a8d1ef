package http

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"

	"github.com/bft-labs/fimsync/internal/domain"
	"github.com/bft-labs/fimsync/internal/ports"
	"github.com/bft-labs/fimsync/pkg/log"
)

const syncMessagesEndpoint = "/v1/sync/messages"

// maxReplyLine bounds one inbound command line.
const maxReplyLine = 1 << 20

// BatchSender implements ports.BatchSender using HTTP.
// Messages are posted as newline-delimited JSON; the response body carries
// one inbound command per line.
type BatchSender struct {
	client ports.HTTPClient
	logger log.Logger
}

var _ ports.BatchSender = (*BatchSender)(nil)

// NewBatchSender creates a new HTTP batch sender.
func NewBatchSender(client ports.HTTPClient, logger log.Logger) *BatchSender {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &BatchSender{
		client: client,
		logger: logger,
	}
}

// Send posts the batch and returns the collector's replies.
func (s *BatchSender) Send(ctx context.Context, batch *domain.Batch, metadata ports.SendMetadata) ([]string, error) {
	if batch.Empty() {
		return nil, nil
	}

	var body bytes.Buffer
	body.Grow(batch.TotalBytes + batch.Size())
	for _, m := range batch.Messages {
		body.WriteString(m)
		body.WriteByte('\n')
	}

	url := metadata.ServiceURL + syncMessagesEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	osArch := metadata.OSArch
	if osArch == "" {
		osArch = runtime.GOOS + "/" + runtime.GOARCH
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	if metadata.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+metadata.AuthKey)
	}
	req.Header.Set("X-Agent-Id", metadata.AgentID)
	req.Header.Set("X-Agent-Hostname", metadata.Hostname)
	req.Header.Set("X-Agent-OSArch", osArch)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	replies, err := readReplies(resp.Body)
	if err != nil {
		return replies, fmt.Errorf("read response: %w", err)
	}
	s.logger.Debug("batch sent",
		log.Int("messages", len(batch.Messages)),
		log.Int("replies", len(replies)),
	)
	return replies, nil
}

func readReplies(r io.Reader) ([]string, error) {
	var replies []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxReplyLine)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		replies = append(replies, line)
	}
	return replies, sc.Err()
}
