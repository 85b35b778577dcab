package notify

import "html/template"

const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <style>
      body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
      .container { max-width: 600px; margin: 0 auto; padding: 20px; }
      .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
      .content { background: #f9f9f9; padding: 30px; border-radius: 8px; }
      .plan-badge { display: inline-block; padding: 10px 20px; background: #fbbf24; color: #111; border-radius: 20px; font-weight: bold; }
      .features, .receipt { background: white; padding: 20px; border-radius: 8px; margin: 20px 0; }
      .receipt-row { display: flex; justify-content: space-between; padding: 10px 0; border-bottom: 1px solid #eee; }
      .total { font-size: 18px; font-weight: bold; color: #667eea; }
      .button { display: inline-block; padding: 12px 30px; background: #667eea; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
      .footer { text-align: center; padding: 20px; color: #666; font-size: 12px; }
    </style>
  </head>
  <body>
    <div class="container">
      {{template "body" .}}
      {{if .Footer}}<div class="footer"><p>&copy; {{.Year}} Bite Bliss. All rights reserved.</p></div>{{end}}
    </div>
  </body>
</html>{{end}}`

const confirmationBody = `{{define "body"}}
<div class="header">
  <h1>Subscription Activated!</h1>
  <div class="plan-badge">{{.Plan}}</div>
</div>
<div class="content">
  <p>Hi {{.Username}},</p>
  <p>Your subscription to {{.Plan}} is now active! Get ready to enjoy premium recipes and features.</p>
  <div class="features">
    <h3>Your Benefits:</h3>
    <ul>{{range .Features}}<li>{{.}}</li>{{end}}</ul>
  </div>
  <a href="{{.AccountURL}}" class="button">View My Account</a>
  <p style="font-size: 14px; color: #666;">You can manage your subscription anytime from your account settings.</p>
</div>
{{end}}`

const receiptBody = `{{define "body"}}
<div class="header"><h2>Payment Receipt</h2></div>
<div class="content">
  <p>Hi {{.Username}},</p>
  <p>Thank you for your payment! Here's your receipt:</p>
  <div class="receipt">
    <div class="receipt-row"><span>Date:</span><span>{{.Date}}</span></div>
    <div class="receipt-row"><span>Plan:</span><span>{{.Plan}}</span></div>
    <div class="receipt-row total"><span>Amount Paid:</span><span>{{.Amount}}</span></div>
  </div>
  <p style="font-size: 14px; color: #666;">This receipt has been sent to {{.Email}}. For billing questions, please contact support@bitebliss.com</p>
</div>
{{end}}`

const customBody = `{{define "body"}}<div class="content">{{.Message}}</div>{{end}}`

var (
	confirmationTmpl = template.Must(template.Must(template.New("confirmation").Parse(layout)).Parse(confirmationBody))
	receiptTmpl      = template.Must(template.Must(template.New("receipt").Parse(layout)).Parse(receiptBody))
	customTmpl       = template.Must(template.Must(template.New("custom").Parse(layout)).Parse(customBody))
)
