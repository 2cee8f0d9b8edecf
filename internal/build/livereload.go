package build

// liveReloadScriptName is the output-relative path of the live-reload client.
const liveReloadScriptName = "livereload.js"

// liveReloadScript is emitted as a regular output file in serve mode and
// referenced by the script tag the page shell injects. Emitting it into the
// output tree keeps the link checker's view of the site complete.
const liveReloadScript = `(function () {
  var current = null;
  var source = new EventSource("/livereload");
  source.onmessage = function (ev) {
    try {
      var hash = JSON.parse(ev.data).hash;
      if (current === null) { current = hash; return; }
      if (hash !== current) { location.reload(); }
    } catch (e) { /* ignore malformed events */ }
  };
})();
`
