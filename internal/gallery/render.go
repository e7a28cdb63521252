package gallery

import (
	"html/template"
	"io"
)

// RenderIndex writes the gallery page for idx.
func RenderIndex(w io.Writer, idx *Index) error {
	return indexTmpl.Execute(w, idx)
}

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Forecast Gallery</title>
<style>
body { font-family: sans-serif; margin: 24px; color: #222; background: #fafafa; }
form { display: flex; gap: 8px; align-items: end; margin-bottom: 24px; }
label { display: flex; flex-direction: column; font-size: 12px; color: #555; }
input { padding: 6px; }
.group-title { margin-top: 28px; }
.horizon-title { color: #555; }
.grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(220px, 1fr)); gap: 12px; }
.card { background: #fff; border: 1px solid #ddd; border-radius: 6px; padding: 12px; }
.card-header { font-weight: 600; word-break: break-word; }
.card-meta { font-size: 12px; color: #777; margin: 6px 0 10px; }
.btn { padding: 4px 10px; border-radius: 4px; border: 1px solid #999; background: #fff; cursor: pointer; text-decoration: none; color: #222; font-size: 13px; }
.btn-danger { border-color: #c33; color: #c33; }
.status { font-size: 13px; color: #555; }
.empty { color: #777; }
</style>
</head>
<body>
<h1>Forecast Gallery</h1>

<form id="generate-form">
  <label>Symbols <input id="symbols" name="symbols" placeholder="AAPL, MSFT" required></label>
  <label>Years of history <input id="years" name="years" type="number" min="0.1" step="any" value="5" required></label>
  <label>Days to forecast <input id="days" name="days" type="number" min="1" step="1" value="30" required></label>
  <button class="btn" type="submit">Generate</button>
  <span class="status" id="status"></span>
</form>

{{- if not .Groups}}
<p class="empty">No charts yet.</p>
{{- end}}
{{- range .Groups}}
<h3 class="group-title">{{.Years}} years history</h3>
{{- range .Horizons}}
<h4 class="horizon-title">{{.Days}}-day forecast</h4>
<div class="grid">
{{- range .Entries}}
<div class="card" title="{{.Title}}">
  <div class="card-header">{{.Label}}</div>
  <div class="card-meta">Generated {{.Created}}</div>
  <div class="card-actions">
    <a class="btn btn-secondary" href="{{.Filename}}" target="_blank">View</a>
    <button class="btn btn-danger" type="button" data-filename="{{.Filename}}">Delete</button>
  </div>
</div>
{{- end}}
</div>
{{- end}}
{{- end}}

<script>
function post(path, body) {
  return fetch(path, {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify(body)
  }).then(function (r) { return r.json(); });
}

document.getElementById("generate-form").addEventListener("submit", function (ev) {
  ev.preventDefault();
  var symbols = document.getElementById("symbols").value
    .split(/[\s,]+/).map(function (s) { return s.trim().toUpperCase(); })
    .filter(function (s) { return s.length > 0; });
  var status = document.getElementById("status");
  status.textContent = "Generating...";
  post("/generate", {
    symbols: symbols,
    years: parseFloat(document.getElementById("years").value),
    days: parseInt(document.getElementById("days").value, 10)
  }).then(function (res) {
    if (res.success) { location.reload(); } else { status.textContent = res.error || "failed"; }
  }).catch(function (err) { status.textContent = String(err); });
});

document.querySelectorAll("button[data-filename]").forEach(function (btn) {
  btn.addEventListener("click", function () {
    var filename = btn.getAttribute("data-filename");
    if (!confirm("Delete " + filename + "?")) { return; }
    post("/delete", { filename: filename }).then(function () { location.reload(); });
  });
});
</script>
</body>
</html>
`))
