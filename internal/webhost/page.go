package webhost

import (
	"html/template"
	"io"
)

type pageData struct {
	ID    string
	Title string
	URL   string
}

// The shim forwards editor messages to the host over the websocket and
// posts host frames into the iframe or through the port the editor
// transferred with its last usePort message.
var pageTemplate = template.Must(template.New("surface").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <style type="text/css">
    body, html { margin: 0; padding: 0; height: 100%; overflow: hidden; background-color: white; }
    #bar { height: 28px; display: flex; align-items: center; justify-content: space-between;
           padding: 0 8px; font: 13px sans-serif; background: #2d2d30; color: #ccc; }
    #content { position: absolute; left: 0; right: 0; bottom: 0; top: 28px; }
  </style>
</head>
<body>
  <div id="bar"><span>{{.Title}}</span><button id="close">Close</button></div>
  <div id="content">
    <iframe src="{{.URL}}" id="editor" width="100%" height="100%" frameborder="0"></iframe>
  </div>
  <script>
    (function() {
      const frame = document.getElementById('editor');
      const scheme = location.protocol === 'https:' ? 'wss:' : 'ws:';
      const ws = new WebSocket(scheme + '//' + location.host + '/surface/' + {{.ID}} + '/ws');
      const pending = [];
      var port = null;

      function send(f) {
        if (ws.readyState === WebSocket.OPEN) {
          ws.send(JSON.stringify(f));
        } else {
          pending.push(f);
        }
      }

      ws.onopen = function() {
        while (pending.length) {
          ws.send(JSON.stringify(pending.shift()));
        }
        send({type: 'focus', active: document.hasFocus()});
      };

      ws.onmessage = function(event) {
        const f = JSON.parse(event.data);
        if (f.type !== 'post') {
          return;
        }
        if (f.target === 'port') {
          if (port) {
            port.postMessage(f.message);
            port = null;
          }
        } else {
          frame.contentWindow.postMessage(f.message, '*');
        }
      };

      window.addEventListener('message', function(event) {
        if (event.source !== frame.contentWindow) {
          return;
        }
        const data = event.data;
        if (!data || data.direction !== 'toVSCode') {
          return;
        }
        const hasPort = data.usePort === true && event.ports.length > 0;
        if (hasPort) {
          port = event.ports[0];
        }
        send({type: 'message', message: data, port: hasPort});
      });

      window.addEventListener('focus', function() { send({type: 'focus', active: true}); });
      document.addEventListener('visibilitychange', function() {
        send({type: 'focus', active: document.visibilityState === 'visible'});
      });
      document.getElementById('close').addEventListener('click', function() {
        send({type: 'close'});
        ws.close();
        window.close();
      });
    }());
  </script>
</body>
</html>
`))

func renderPage(w io.Writer, data pageData) error {
	return pageTemplate.Execute(w, data)
}
