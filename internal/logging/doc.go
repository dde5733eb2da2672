// Package logging wraps zap with context-aware methods.
//
// Every method takes a context.Context first and prepends correlation
// fields found in it: the OpenTelemetry trace and span ids, the HTTP
// request id, and the collection being operated on.
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithCollection(ctx, "embeddings")
//	logger.Info(ctx, "collection created", zap.Int("dimensions", 384))
//
// Field names such as api_key or authorization are redacted by the encoder.
// Levels below Error are sampled when sampling is enabled; Error and above
// always pass.
//
// Tests use NewTestLogger and its assertion helpers.
package logging
