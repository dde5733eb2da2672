// Package vectorstore builds the vector engine the gateway runs on.
//
// Two engines are available, selected by engine.provider:
//   - qdrant: a remote Qdrant server over gRPC (internal/qdrant)
//   - chromem: chromem-go embedded in the process, in memory or persisted
//     to a directory
//
// The chromem engine exists for local development and tests. It performs
// exhaustive cosine search and evaluates payload filters in Go with the same
// semantics Qdrant applies to keyword, integer and boolean matches.
//
//	engine, err := vectorstore.NewEngine(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	gw, err := gateway.New(engine, gatewayConfig)
package vectorstore
