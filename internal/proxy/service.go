// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package proxy creates partner link sessions on behalf of browsers that
// must never see the partner credentials.
package proxy

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/knotlink/internal/config"
	"github.com/ManuGH/knotlink/internal/knot"
	xglog "github.com/ManuGH/knotlink/internal/log"
	"github.com/ManuGH/knotlink/internal/telemetry"
)

const opCreateSession = "proxy.create_session"

// Client messages returned for local failures.
const (
	MsgMissingSubject     = "Missing user_id in request body"
	MsgMissingCredentials = "Server configuration error: Missing API credentials"
)

// PartnerClient performs the outbound session-create call.
type PartnerClient interface {
	CreateSession(ctx context.Context, externalUserID string) (*knot.Session, error)
}

// Service is stateless apart from the immutable credentials and client.
type Service struct {
	creds  knot.Credentials
	client PartnerClient
	logger zerolog.Logger
}

// NewService wires a Service.
func NewService(creds knot.Credentials, client PartnerClient) *Service {
	return &Service{
		creds:  creds,
		client: client,
		logger: xglog.WithComponent("proxy"),
	}
}

// Configured reports whether usable credentials are present.
func (s *Service) Configured() bool {
	return credentialsUsable(s.creds)
}

func credentialsUsable(c knot.Credentials) bool {
	return config.KnotConfig{ClientSecret: c.ClientSecret}.HasCredentials()
}

// CreateSession validates req, checks credentials and performs one partner
// call. No outbound request is made when validation or the credential
// check fails.
func (s *Service) CreateSession(ctx context.Context, req LinkRequest) (res SessionResult, err error) {
	ctx, span := telemetry.Tracer("knotlink/proxy").Start(ctx, opCreateSession)
	defer func() {
		span.SetAttributes(telemetry.SessionAttributes(string(ParseProduct(string(req.Product))), statusOf(err), res.SessionID != "")...)
		if err != nil {
			span.SetAttributes(telemetry.ErrorAttributes(KindOf(err).Error())...)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger := xglog.WithContext(ctx, s.logger)

	subject := strings.TrimSpace(req.SubjectID)
	if subject == "" {
		return SessionResult{}, &Error{Kind: ErrValidation, Op: opCreateSession, Detail: MsgMissingSubject}
	}
	product := req.Product
	if product == "" {
		product = DefaultProduct
	}

	if !credentialsUsable(s.creds) {
		logger.Error().
			Str(xglog.FieldEvent, "proxy.credentials_missing").
			Msg("partner credentials are not configured")
		return SessionResult{}, &Error{Kind: ErrConfiguration, Op: opCreateSession, Detail: MsgMissingCredentials}
	}

	ev := logger.Info().
		Str(xglog.FieldEvent, "proxy.session.requested").
		Str(xglog.FieldSubjectID, subject).
		Str(xglog.FieldProduct, string(product))
	if req.MerchantID != nil {
		ev = ev.Int(xglog.FieldMerchantID, *req.MerchantID)
	}
	ev.Msg("creating link session")

	sess, callErr := s.client.CreateSession(ctx, subject)
	if callErr != nil {
		perr := translate(ctx, callErr)
		logger.Warn().
			Err(callErr).
			Str(xglog.FieldEvent, "proxy.session.failed").
			Str("kind", perr.Kind.Error()).
			Int(xglog.FieldUpstreamStatus, perr.Status).
			Msg("link session failed")
		return SessionResult{}, perr
	}

	res = SessionResult{SessionID: sess.ID, Raw: sess.Payload}
	if res.Raw == nil {
		res.Raw = map[string]any{}
	}
	logger.Info().
		Str(xglog.FieldEvent, "proxy.session.created").
		Str(xglog.FieldSessionID, res.SessionID).
		Bool("has_session_id", res.SessionID != "").
		Msg("link session created")
	return res, nil
}

// translate maps partner client failures onto the proxy taxonomy.
func translate(ctx context.Context, err error) *Error {
	out := &Error{Op: opCreateSession, Err: err}

	var kerr *knot.Error
	if errors.As(err, &kerr) {
		out.Status = kerr.Status
		out.StatusText = kerr.StatusText
		out.Detail = kerr.Detail
	}

	switch {
	case errors.Is(err, knot.ErrRejected):
		out.Kind = ErrUpstream
	case errors.Is(err, knot.ErrBadResponse):
		out.Kind = ErrResponseFormat
		out.Detail = "Invalid response format"
	case errors.Is(err, knot.ErrTimeout), errors.Is(ctx.Err(), context.DeadlineExceeded):
		out.Kind = ErrTimeout
		out.Detail = "Request to Knot API timed out"
	case errors.Is(err, knot.ErrUnavailable):
		out.Kind = ErrNetwork
		out.Detail = "Network error: " + rootMessage(err)
	default:
		out.Kind = ErrUnexpected
		out.Detail = err.Error()
	}
	return out
}

func statusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

func rootMessage(err error) string {
	var kerr *knot.Error
	if errors.As(err, &kerr) && kerr.Err != nil {
		return kerr.Err.Error()
	}
	return err.Error()
}
