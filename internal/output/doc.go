// Package output formats review reports for display, download or machine
// consumption.
//
// Supported formats:
//   - text     - terminal output with optional color (default for the CLI)
//   - json     - the full structured report
//   - markdown - summary table with collapsible sections per severity
//   - sarif    - SARIF v2.1.0 for code-scanning uploads
//   - html     - the review page served by the web gateway, or its export variant
//   - pdf      - the downloadable report, laid out with fpdf or printed by wkhtmltopdf
//   - patch    - the formatter's changes as a unified diff
//
// Use [GetWriter] to obtain a [Writer] for a format, or [Render] to write a
// report and get every failure back as a [*RenderError].
package output
