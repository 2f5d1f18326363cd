// internal/browser/resolver.go
package browser

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/flightsearch-cli/internal/automation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Resolver operations.
const (
	opProbe    = "probe"
	opTexts    = "texts"
	opActivate = "activate"
	opFocus    = "focus"
)

// resolverJS is evaluated in the page by both drivers. It takes one request
// object, evaluates the XPath (inside the scope element when one is given)
// and performs the operation on the snapshot it just took.
const resolverJS = `(req) => {
  const snapshot = (xpath, root) => {
    const res = document.evaluate(xpath, root, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    const out = [];
    for (let i = 0; i < res.snapshotLength; i++) out.push(res.snapshotItem(i));
    return out;
  };
  const isVisible = (el) => {
    if (!el || el.nodeType !== Node.ELEMENT_NODE) return false;
    const rect = el.getBoundingClientRect();
    const style = window.getComputedStyle(el);
    return rect.width > 0 && rect.height > 0 && style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
  };
  const isEnabled = (el) => !el.disabled && el.getAttribute('aria-disabled') !== 'true';
  const text = (el) => (el.innerText !== undefined ? el.innerText : el.textContent) || '';

  const out = { found: true, count: 0, firstVisible: -1, firstClickable: -1, texts: [] };
  let root = document;
  if (req.scope) {
    root = snapshot(req.scope.xpath, document)[req.scope.index];
    if (!root) {
      out.found = false;
      out.scopeMissing = true;
      return out;
    }
  }

  const nodes = snapshot(req.xpath, root);
  out.count = nodes.length;
  switch (req.op) {
    case 'probe':
      nodes.forEach((el, i) => {
        if (!isVisible(el)) return;
        if (out.firstVisible < 0) out.firstVisible = i;
        if (out.firstClickable < 0 && isEnabled(el)) out.firstClickable = i;
      });
      break;
    case 'texts':
      out.texts = nodes.map(text);
      break;
    case 'activate':
    case 'focus': {
      const el = nodes[req.index];
      if (!el) {
        out.found = false;
        break;
      }
      if (req.op === 'activate') el.click();
      else el.focus();
      break;
    }
  }
  return out;
}`

type scopeRef struct {
	XPath string `json:"xpath"`
	Index int    `json:"index"`
}

type resolveRequest struct {
	Op    string    `json:"op"`
	XPath string    `json:"xpath"`
	Index int       `json:"index"`
	Scope *scopeRef `json:"scope,omitempty"`
}

type resolveResponse struct {
	Found          bool     `json:"found"`
	Count          int      `json:"count"`
	FirstVisible   int      `json:"firstVisible"`
	FirstClickable int      `json:"firstClickable"`
	Texts          []string `json:"texts"`
	ScopeMissing   bool     `json:"scopeMissing"`
}

func newRequest(op string, sel automation.Selector, index int) resolveRequest {
	req := resolveRequest{Op: op, XPath: sel.XPath, Index: index}
	if sel.Scope != nil {
		req.Scope = &scopeRef{XPath: sel.Scope.XPath, Index: sel.Scope.Index}
	}
	return req
}

// asArg converts the request to the plain map playwright serializes.
func (r resolveRequest) asArg() map[string]interface{} {
	arg := map[string]interface{}{"op": r.Op, "xpath": r.XPath, "index": r.Index}
	if r.Scope != nil {
		arg["scope"] = map[string]interface{}{"xpath": r.Scope.XPath, "index": r.Scope.Index}
	}
	return arg
}

// expression wraps the resolver into a self-invoking call for drivers that
// only evaluate plain expressions.
func (r resolveRequest) expression() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode resolver request: %w", err)
	}
	return fmt.Sprintf("(%s)(%s)", resolverJS, b), nil
}

// decodeResponse converts a loosely typed evaluation result into a response.
func decodeResponse(v interface{}) (resolveResponse, error) {
	var res resolveResponse
	b, err := json.Marshal(v)
	if err != nil {
		return res, fmt.Errorf("encode resolver result: %w", err)
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return res, fmt.Errorf("decode resolver result: %w", err)
	}
	return res, nil
}

func (r resolveResponse) state() automation.ElementState {
	if !r.Found {
		return automation.NoMatch
	}
	return automation.ElementState{Count: r.Count, FirstVisible: r.FirstVisible, FirstClickable: r.FirstClickable}
}

// check converts a missing scope or element into ElementNotFoundError.
func (r resolveResponse) check(sel automation.Selector, index int) error {
	if r.Found {
		return nil
	}
	if r.ScopeMissing && sel.Scope != nil {
		return &automation.ElementNotFoundError{Target: sel.Target, Reason: fmt.Sprintf("scope %s[%d] is gone", sel.Scope.Target, sel.Scope.Index)}
	}
	return &automation.ElementNotFoundError{Target: sel.Target, Reason: fmt.Sprintf("no element at index %d of %d", index, r.Count)}
}
