// Package gateway indexes and queries embedding vectors in a vector engine
// under caller-chosen string ids.
//
// Engines key points by UUID, so caller ids are mapped with a UUID v5 over
// a fixed namespace and the caller id is kept in the payload under
// original_id. Search reads it back from there.
//
// The target collection is created lazily on the first Store, sized to the
// first vector's length and using cosine distance.
//
//	gw, err := gateway.New(engine, gateway.Config{Collection: "embeddings"},
//	    gateway.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	_, err = gw.Store(ctx, "user:42", []float32{0.1, 0.2, 0.3},
//	    gateway.Payload{"allow_reference": true})
//	results, err := gw.Search(ctx, []float32{0.1, 0.2, 0.3}, gateway.WithLimit(5))
//
// Search applies a visibility predicate (allow_reference == true by default).
// A custom filter is ANDed with it unless the gateway is configured with
// FilterReplace.
//
// Errors wrap one of ErrValidation, ErrProvisioning or ErrEngine. Nothing is
// retried and no timeouts are imposed; callers control both through ctx.
package gateway
