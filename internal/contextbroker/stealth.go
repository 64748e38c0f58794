package contextbroker

// stealthScript is injected at the context level via
// page.AddScriptToEvaluateOnNewDocument, so it runs before any page script
// in every frame, including iframes, on every navigation. The idempotency
// guard protects against multiple installations from repeated
// navigations or nested frames re-running the same init script.
const stealthScript = `(() => {
  if (window.__renderServiceStealthInstalled) {
    return;
  }
  Object.defineProperty(window, '__renderServiceStealthInstalled', {
    value: true,
    enumerable: false,
    configurable: false,
  });

  Object.defineProperty(navigator, 'webdriver', { get: () => undefined });

  const fakePlugins = [1, 2, 3, 4, 5].map((i) => ({ name: 'Plugin ' + i }));
  Object.defineProperty(navigator, 'plugins', { get: () => fakePlugins });
  Object.defineProperty(navigator, 'mimeTypes', { get: () => [1, 2] });

  const originalQuery = window.navigator.permissions && window.navigator.permissions.query;
  if (originalQuery) {
    window.navigator.permissions.query = (parameters) => (
      parameters.name === 'notifications'
        ? Promise.resolve({ state: Notification.permission })
        : originalQuery(parameters)
    );
  }

  const getParameter = WebGLRenderingContext.prototype.getParameter;
  WebGLRenderingContext.prototype.getParameter = function (parameter) {
    if (parameter === 37445) return 'Intel Inc.';
    if (parameter === 37446) return 'Intel Iris OpenGL Engine';
    return getParameter.call(this, parameter);
  };

  const toDataURL = HTMLCanvasElement.prototype.toDataURL;
  HTMLCanvasElement.prototype.toDataURL = function (...args) {
    const ctx = this.getContext('2d');
    if (ctx) {
      const shift = Math.floor(Math.random() * 2);
      ctx.fillStyle = 'rgba(0,0,0,0.00' + shift + ')';
      ctx.fillRect(0, 0, 1, 1);
    }
    return toDataURL.apply(this, args);
  };

  Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });
  Object.defineProperty(navigator, 'deviceMemory', { get: () => 8 });
  if (navigator.connection) {
    Object.defineProperty(navigator.connection, 'rtt', { get: () => 50 });
  }

  Object.defineProperty(window, 'outerWidth', { get: () => window.innerWidth });
  Object.defineProperty(window, 'outerHeight', { get: () => window.innerHeight });
})();`
