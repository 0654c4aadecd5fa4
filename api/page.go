package api

import "net/http"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>QR Code Generator</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: Arial, sans-serif;
    background: #eef1f4;
    color: #333;
    display: flex;
    justify-content: center;
    align-items: center;
    min-height: 100vh;
  }
  .card {
    background: rgba(255, 255, 255, 0.9);
    border: 2px solid #ccc;
    border-radius: 10px;
    box-shadow: 0 4px 12px rgba(0, 0, 0, 0.1);
    padding: 20px;
    width: 600px;
    max-width: 100%;
    text-align: center;
  }
  h1 { font-size: 24px; margin-bottom: 20px; }
  form { display: flex; flex-direction: column; gap: 15px; }
  input[type="text"] {
    padding: 10px;
    border: 1px solid #ddd;
    border-radius: 5px;
    font-size: 16px;
    width: 100%;
  }
  .color-row { display: flex; align-items: center; justify-content: space-between; font-size: 16px; }
  .color-row input {
    width: 50px; height: 30px;
    border: 1px solid #ddd;
    border-radius: 5px;
    cursor: pointer;
  }
  button {
    padding: 10px;
    border: none;
    border-radius: 5px;
    color: #fff;
    font-size: 16px;
    cursor: pointer;
  }
  button[type="submit"] { background: #4caf50; }
  button[type="submit"]:hover { background: #45a049; }
  .actions button { display: inline-block; margin-top: 15px; }
  #download { display: none; background: #007bff; }
  #download:hover { background: #0056b3; }
  #back { background: #f44336; margin-left: 10px; }
  #back:hover { background: #d32f2f; }
  #qr-code img { max-width: 200px; height: auto; margin-top: 15px; border-radius: 5px; }
</style>
</head>
<body>
<div class="card">
  <h1>QR Code Generator</h1>
  <form id="qr-form">
    <input type="text" name="data" placeholder="Enter text or URL" required>
    <div class="color-row">
      <label for="fg_color">QR Code Color:</label>
      <input type="color" id="fg_color" name="fg_color" value="#000000">
    </div>
    <div class="color-row">
      <label for="bg_color">Background Color:</label>
      <input type="color" id="bg_color" name="bg_color" value="#ffffff">
    </div>
    <button type="submit">Generate QR Code</button>
  </form>
  <div id="qr-code"></div>
  <div class="actions">
    <button type="button" id="download">Download QR Code</button>
    <button type="button" id="back">Back</button>
  </div>
</div>
<script>
(function() {
  var form = document.getElementById('qr-form');
  var output = document.getElementById('qr-code');
  var downloadBtn = document.getElementById('download');
  var backBtn = document.getElementById('back');
  var dataURL = '';

  function clearOutput() {
    while (output.firstChild) output.removeChild(output.firstChild);
  }

  form.addEventListener('submit', function(ev) {
    ev.preventDefault();
    var body = {
      data: form.elements['data'].value,
      fg_color: form.elements['fg_color'].value,
      bg_color: form.elements['bg_color'].value
    };
    fetch('/generate', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(body)
    })
      .then(function(r) {
        if (!r.ok) throw new Error('status ' + r.status);
        return r.text();
      })
      .then(function(url) {
        dataURL = url;
        clearOutput();
        var img = document.createElement('img');
        img.setAttribute('alt', 'QR Code');
        img.setAttribute('src', url);
        output.appendChild(img);
        downloadBtn.style.display = 'inline-block';
      })
      .catch(function() {
        alert('Error generating QR Code. Please try again.');
      });
  });

  downloadBtn.addEventListener('click', function() {
    var link = document.createElement('a');
    link.href = dataURL;
    link.download = 'qr_code.png';
    document.body.appendChild(link);
    link.click();
    document.body.removeChild(link);
  });

  backBtn.addEventListener('click', function() {
    form.reset();
    clearOutput();
    dataURL = '';
    downloadBtn.style.display = 'none';
  });
})();
</script>
</body>
</html>`
