// Pyreview reviews Python source with flake8, radon and black, adds AI
// suggestions, and serves or exports the result.
//
// Usage:
//
//	pyreview serve                      # web form on :8080
//	pyreview review app.py              # review a file, text report on stdout
//	cat app.py | pyreview review -      # review stdin
//	pyreview review app.py --format pdf --out review.pdf
//	pyreview review app.py --format sarif --fail-on warning
//	pyreview tools doctor               # check flake8, radon, black
//
// See https://github.com/dshills/pyreview for full documentation.
package main
