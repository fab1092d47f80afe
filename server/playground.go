package server

import "net/http"

const playgroundPage = `<!doctype html>
<html>
	<head>
		<meta charset="utf-8" />
		<meta name="viewport" content="user-scalable=no, initial-scale=1.0, minimum-scale=1.0, maximum-scale=1.0, minimal-ui" />
		<title>procinfo playground</title>
		<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/css/index.css" />
		<script src="https://cdn.jsdelivr.net/npm/graphql-playground-react/build/static/js/middleware.js"></script>
	</head>
	<body>
		<div id="root"></div>
		<script>
			window.addEventListener('load', function () {
				GraphQLPlayground.init(document.getElementById('root'), { endpoint: '/' });
			});
		</script>
	</body>
</html>`

func servePlayground(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(playgroundPage))
}
