package render

import "html/template"

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="alternate" type="application/rss+xml" title="{{.Title}}" href="{{.FeedHref}}">
<style>
body{font-family:system-ui,sans-serif;max-width:46rem;margin:2rem auto;padding:0 1rem;color:#222}
header p{color:#555}
#search{width:100%;padding:.5rem;font-size:1rem;margin:1rem 0}
article.entry{border-bottom:1px solid #ddd;padding:1rem 0}
article.entry h2{margin:0 0 .25rem;font-size:1.2rem}
.meta{color:#666;font-size:.9rem}
footer{color:#888;font-size:.8rem;margin-top:2rem}
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
{{if .Description}}<p>{{.Description}}</p>{{end}}
<p><a href="{{.FeedHref}}">RSS</a> &middot; {{.Count}} saved</p>
</header>
<input id="search" type="search" placeholder="Filter articles" aria-label="Filter articles">
<main id="entries">
{{range .Cards}}<article class="entry" data-entry-id="{{.ID}}" data-search="{{.Search}}">
<h2><a href="{{.Href}}">{{.Title}}</a></h2>
<p class="meta">{{if .ISODate}}<time datetime="{{.ISODate}}">{{.Date}}</time>{{else}}{{.Date}}{{end}}{{if .Authors}} &middot; {{.Authors}}{{end}}{{if .Site}} &middot; {{.Site}}{{end}}</p>
{{if .Summary}}<p>{{.Summary}}</p>{{end}}
<p class="meta"><a href="{{.Source}}" rel="noopener">Original</a></p>
</article>
{{else}}<p>Nothing archived yet.</p>
{{end}}</main>
{{if .Generated}}<footer>Generated {{.Generated}}</footer>{{end}}
<script>
(function(){
  var box=document.getElementById("search");
  var cards=document.querySelectorAll("article.entry");
  box.addEventListener("input",function(){
    var q=box.value.trim().toLowerCase();
    cards.forEach(function(c){
      c.hidden=q!==""&&c.getAttribute("data-search").indexOf(q)===-1;
    });
  });
})();
</script>
</body>
</html>
`))

var artifactTemplate = template.Must(template.New("artifact").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="canonical" href="{{.Source}}">
<style>
body{font-family:Georgia,serif;max-width:42rem;margin:2rem auto;padding:0 1rem;line-height:1.6;color:#222}
img{max-width:100%;height:auto}
.meta{color:#666;font-family:system-ui,sans-serif;font-size:.9rem}
</style>
</head>
<body>
<nav class="meta"><a href="{{.Back}}">&larr; Archive</a></nav>
<article data-entry-id="{{.ID}}">
<h1>{{.Title}}</h1>
<p class="meta">{{.Date}}{{if .Authors}} &middot; {{.Authors}}{{end}}{{if .Site}} &middot; {{.Site}}{{end}} &middot; <a href="{{.Source}}" rel="noopener">Original</a></p>
{{.Content}}
</article>
</body>
</html>
`))
