package server

import "html/template"

var pageTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Ask me about {{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; color: #222; }
form { display: flex; gap: .5rem; }
input[type=text] { flex: 1; padding: .5rem; }
.pair { border-bottom: 1px solid #ddd; padding: .75rem 0; }
.question { font-weight: bold; }
.answer { white-space: pre-wrap; }
.error { color: #b00; }
</style>
</head>
<body>
<h1>Ask me about {{.Title}}</h1>
<form id="ask">
  <input type="text" name="question" placeholder="Type your question" autocomplete="off" autofocus>
  <button type="submit">Ask</button>
</form>
<div id="answers">
{{- range .Turns}}
  <div class="pair"><div class="question">{{.Question}}</div><div class="answer">{{.Answer}}</div></div>
{{- end}}
</div>
<script>
document.getElementById("ask").addEventListener("submit", async (e) => {
  e.preventDefault();
  const input = e.target.question;
  const question = input.value.trim();
  if (!question) return;
  const pair = document.createElement("div");
  pair.className = "pair";
  const q = document.createElement("div");
  q.className = "question";
  q.textContent = question;
  const a = document.createElement("div");
  a.className = "answer";
  a.textContent = "...";
  pair.append(q, a);
  document.getElementById("answers").prepend(pair);
  input.value = "";
  const resp = await fetch("/answer", { method: "POST", body: new URLSearchParams({ question }) });
  a.textContent = await resp.text();
  if (!resp.ok) a.className = "answer error";
});
</script>
</body>
</html>
`))
