// Package wavetestlib is a support library for writing checkers and
// interactors: the programs a judge runs to decide whether a candidate's
// output is right.
//
// A checker reads three token streams (the test input, the reference answer
// and the candidate's output) and ends with a verdict. An interactor talks to
// a running candidate over a pipe pair and also ends with a verdict.
//
// # Architecture Overview
//
//	wavetestlib/
//	├── tokenized/       Whitespace and line tokenizer over a byte stream
//	├── contract/        Expect operations that turn mismatches into verdicts
//	├── floatcmp/        Tolerant float and string comparison
//	├── verdict/         Accepted/Rejected outcomes and process exit
//	├── judge/           Checker and Interactor instances over files and pipes
//	├── resource/        Handle table with lifecycle events
//	├── bridge/          Flat handle-based API with two-phase buffer reads
//	├── wasmhost/        "wave" host module for wasm guests (wazero)
//	├── errors/          Structured faults
//	└── cmd/wave/        CLI: check, interact, compare, inspect
//
// # Quick Start
//
// A native checker:
//
//	judge.RunChecker(func(c *judge.Checker) {
//	    for {
//	        want, ok := contract.ReadTokenAs[float64](c.Answer)
//	        if !ok {
//	            break
//	        }
//	        c.Output.ExpectFloatEq(want, 1e-8)
//	    }
//	    c.Output.ExpectEOF()
//	})
//
// A checker compiled to wasm imports the "wave" module and is run with
//
//	wave check checker.wasm input.txt output.txt answer.txt
//
// # Verdicts and Faults
//
// Expect operations and verdict.Reject end the check with Rejected (exit
// 255). verdict.Accept or returning normally ends it with Accepted (exit 0).
// Everything else, such as an unreadable file, invalid UTF-8, a reference
// answer that does not parse or a stale handle, is a fault (exit 2): the
// checker is broken, not the candidate.
//
// # Thread Safety
//
// Readers and instances are single-threaded. The bridge and the resource
// table are safe for concurrent use.
package wavetestlib
