package server

import "html/template"

// homePage is the browser upload form. It posts to /convert and the
// response streams back the finished archive as a download.
var homePage = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Boot Animation Creator</title>
    <style>
        body { font-family: sans-serif; max-width: 600px; margin: 30px auto; }
        label { display: inline-block; width: 120px; }
        input[type="number"] { width: 80px; }
    </style>
</head>
<body>
    <h1>Android Boot Animation Creator</h1>
    <form method="POST" action="/convert" enctype="multipart/form-data">
        <div>
            <label>Video (MP4):</label>
            <input type="file" name="video" accept=".mp4" required />
        </div>
        <div>
            <label>Width:</label>
            <input type="number" name="width" value="0" required />
            <small>(Set 0 to auto-detect)</small>
        </div>
        <div>
            <label>Height:</label>
            <input type="number" name="height" value="0" required />
            <small>(Set 0 to auto-detect)</small>
        </div>
        <div>
            <label>FPS:</label>
            <input type="number" name="fps" value="{{.DefaultFPS}}" required />
        </div>
        <div>
            <label>Loop Count:</label>
            <input type="number" name="loop_count" value="0" required />
            <small>(0 = infinite)</small>
        </div>
        <div>
            <label>Pause:</label>
            <input type="number" name="pause" value="0" required />
            <small>(Frames to pause after part)</small>
        </div>
        <div>
            <label>Part Name:</label>
            <input type="text" name="part_name" value="part0" required />
        </div>
        <br />
        <button type="submit">Create Boot Animation</button>
    </form>
</body>
</html>
`))
