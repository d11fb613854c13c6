// Package harness renders the child-side JavaScript loader hook and
// sync-bridge worker described in spec.md §4.3, so the parent process
// never has to ship a separate npm package: the script is generated
// per-session and written next to the session's other files.
//
// Grounded on other_examples/samthor-nodejs-holder__harness_code.go's
// technique of carrying an entire embedded runtime script as a Go
// string constant, rendered here with text/template instead of left
// static since the socket path and extension list are session-specific.
package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
)

// Params parameterizes the generated script.
type Params struct {
	// SocketPath is the unix-domain socket (or Windows named pipe) the
	// sync-bridge worker dials for every compile call.
	SocketPath string
	// Extensions is the list of source extensions the loader hook
	// intercepts, e.g. []string{".ts", ".tsx"}.
	Extensions []string
}

var tmpl = template.Must(template.New("harness").Funcs(template.FuncMap{
	"jsonList": jsonStringList,
}).Parse(harnessSource))

// Render produces the harness script text for one session.
func Render(p Params) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("rendering harness: %w", err)
	}
	return buf.String(), nil
}

// WriteTo renders the harness and writes it to path.
func WriteTo(path string, p Params) error {
	body, err := Render(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(body), 0o644)
}

func jsonStringList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// harnessSource is the embedded child-side runtime: a main-thread
// require-hook plus a worker_threads sync-bridge, implementing spec.md
// §4.3's shared-memory futex-wait protocol.
const harnessSource = `
// tsdev harness — installed via NODE_OPTIONS=--require=<path>, replaces
// the host's require extension handlers for the configured source
// extensions.
'use strict';
const Module = require('module');
const path = require('path');
const {
  Worker, isMainThread, workerData, parentPort, MessageChannel, receiveMessageOnPort,
} = require('worker_threads');

const SOCKET_PATH = process.env.SOCKET_PATH || {{.SocketPath | printf "%q"}};
const EXTENSIONS = (process.env.EXTENSIONS || '').split(',').filter(Boolean).length
  ? (process.env.EXTENSIONS || '').split(',').filter(Boolean)
  : {{jsonList .Extensions}};

const WAIT_OK = 'ok';
const WAIT_NOT_EQUAL = 'not-equal';
const WAIT_TIMED_OUT = 'timed-out';
const CALL_TIMEOUT_MS = 60000;

// ---- worker thread: performs the actual IPC round trip ----
if (!isMainThread && workerData && workerData.tsdevSyncBridge) {
  const net = require('net');
  const { Atomics: AtomicsNS } = globalThis;

  parentPort.on('message', (msg) => {
    const { id, method, body, sab, port } = msg;
    const sync = new Int32Array(sab);

    const finish = (reply) => {
      port.postMessage({ id, reply });
      port.close();
      Atomics.add(sync, 0, 1);
      Atomics.notify(sync, 0);
    };

    const client = net.createConnection(SOCKET_PATH, () => {
      const payload = JSON.stringify(body);
      const req =
        'POST ' + method + ' HTTP/1.0\r\n' +
        'Host: localhost\r\n' +
        'Content-Length: ' + Buffer.byteLength(payload) + '\r\n' +
        'Content-Type: application/json\r\n\r\n' + payload;
      client.write(req);
    });

    let data = Buffer.alloc(0);
    client.on('data', (chunk) => {
      data = Buffer.concat([data, chunk]);
    });
    client.on('end', () => {
      const sep = data.indexOf('\r\n\r\n');
      const body = sep === -1 ? '{}' : data.subarray(sep + 4).toString('utf-8');
      try {
        finish({ ok: true, value: JSON.parse(body) });
      } catch (e) {
        finish({ ok: false, error: String(e) });
      }
    });
    client.on('error', (err) => {
      finish({ ok: false, error: String(err) });
    });
  });
}

// ---- main thread: sync-bridge client + require hook ----
let bridgeWorker = null;
let nextCallId = 1;

function bridge() {
  if (bridgeWorker) return bridgeWorker;
  bridgeWorker = new Worker(__filename, {
    workerData: { tsdevSyncBridge: true },
  });
  bridgeWorker.unref(); // must not keep the process alive on its own
  return bridgeWorker;
}

// callSync implements spec.md §4.3's per-call protocol: a fresh
// SharedArrayBuffer and MessagePort pair per call, store-then-notify on
// the worker side, futex-style Atomics.wait on the main thread. The
// reply is drained with receiveMessageOnPort rather than the ordinary
// async 'message' event: Atomics.wait blocks the thread without
// yielding to the event loop, so by the time it returns the worker's
// postMessage has already landed in the port's queue but no 'message'
// callback has had a chance to run. receiveMessageOnPort reads that
// queued message synchronously, off-loop.
function callSync(method, body) {
  const worker = bridge();
  const id = nextCallId++;
  const sab = new SharedArrayBuffer(4);
  const sync = new Int32Array(sab);
  const { port1, port2 } = new MessageChannel();

  worker.postMessage({ id, method, body, sab, port: port2 }, [port2]);

  const status = Atomics.wait(sync, 0, 0, CALL_TIMEOUT_MS);

  if (status === WAIT_TIMED_OUT) {
    port1.close();
    throw new Error('tsdev: sync-bridge timed out waiting for ' + method);
  }
  if (status !== WAIT_OK && status !== WAIT_NOT_EQUAL) {
    port1.close();
    throw new Error('tsdev: sync-bridge wait failed: ' + status);
  }

  const received = receiveMessageOnPort(port1);
  port1.close();
  if (!received || !received.message || received.message.id !== id) {
    throw new Error('tsdev: sync-bridge protocol mismatch for ' + method);
  }
  const reply = received.message.reply;
  if (!reply.ok) {
    throw new Error('tsdev: sync-bridge call failed: ' + reply.error);
  }
  return reply.value;
}

function compileSync(sourcePath) {
  return callSync('/compile', sourcePath);
}

function fileRequiredSync(sourcePaths) {
  return callSync('/file-required', sourcePaths);
}

function installHook(ext) {
  const original = Module._extensions[ext] || Module._extensions['.js'];
  Module._extensions[ext] = function (mod, filename) {
    const result = compileSync(filename);
    const body = result.filenames && result.filenames[filename];
    if (typeof body !== 'string') {
      throw new Error('tsdev: no compiled output returned for ' + filename);
    }
    mod._compile(body, filename);
  };
}

if (isMainThread) {
  for (const ext of EXTENSIONS) {
    installHook(ext);
  }

  const originalResolve = Module._resolveFilename;
  Module._resolveFilename = function (request, ...rest) {
    const resolved = originalResolve.call(this, request, ...rest);
    if (!resolved.includes(path.sep + 'node_modules' + path.sep)) {
      try {
        fileRequiredSync([resolved]);
      } catch {
        // best-effort registration only; never block resolution on it
      }
    }
    return resolved;
  };
}
`
